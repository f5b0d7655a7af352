package dialogs

import (
	"textractor/internal/version"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// UserGuide is the Help > User Guide text, in markdown.
const UserGuide = `# Getting Started

Open a photo with **File > Open** (Ctrl+O) or the **Load Image** button.
PNG, JPEG, TIFF and BMP images are supported. Recently opened files are
listed under **File > Open Recent**.

## Selecting a Surface

Click the four corners of the surface in order: top-left, top-right,
bottom-right, bottom-left. A guide line follows the cursor from the last
corner. Points placed too close to an existing corner are ignored.

Once four corners are placed the texture is extracted and shown in the
preview. Drag any corner to adjust it; the preview follows the drag.

## Aspect Ratio

- **Estimated** derives the ratio from the selection's side lengths.
- **Square** forces a 1:1 texture.
- **Custom** uses the ratio typed in the Custom field, between 0.1 and 10.
  The value is applied when you press Enter or leave the field.

## Transform

Flip mirrors the texture top to bottom, Flop mirrors it left to right and
Rotate turns it a quarter turn clockwise. These apply to the preview and to
the saved file.

## Output Resolution

**Original** sizes the texture from the selection. Pick a preset or choose
**Custom** and enter a size such as 1024x768 to force an exact size.

## Saving

Use **File > Save Texture** (Ctrl+S). Files without an extension are saved
as PNG.

## Shortcuts

| Action | Keys |
| --- | --- |
| Open | Ctrl+O |
| Save | Ctrl+S |
| Undo | Ctrl+Z |
| Redo | Ctrl+Y |
| Quit | Ctrl+Q |

Zoom with the mouse wheel or the toolbar buttons. **Fit** returns to the
whole image.
`

// ShowUserGuide displays the user guide in a scrollable dialog.
func ShowUserGuide(window fyne.Window) {
	guide := widget.NewRichTextFromMarkdown(UserGuide)
	guide.Wrapping = fyne.TextWrapWord

	d := dialog.NewCustom(version.AppName+" User Guide", "Close", container.NewVScroll(guide), window)
	d.Resize(fyne.NewSize(800, 600))
	d.Show()
}
