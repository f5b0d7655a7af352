// Package dialogs provides application dialogs.
package dialogs

import (
	"fmt"

	"textractor/internal/version"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// LicenseNotice is shown at launch and in the About dialog.
const LicenseNotice = "This software is licensed under the Apache License 2.0. " +
	"See the LICENSE file for more information."

const licenseURL = "https://www.apache.org/licenses/LICENSE-2.0"

// AboutText returns the About dialog body.
func AboutText() string {
	return fmt.Sprintf("%s v%s\n\n"+
		"Extracts flat textures from photographed surfaces by perspective correction.\n\n"+
		"This software is licensed under the Apache License 2.0.\n"+
		"For more information, visit: %s\n\n"+
		"Built: %s\n"+
		"Commit: %s",
		version.AppName, version.Version, licenseURL, version.BuildTime, version.GitCommit)
}

// ShowAbout displays the About dialog.
func ShowAbout(window fyne.Window) {
	dialog.ShowInformation("About "+version.AppName, AboutText(), window)
}

// ShowLaunchNotice displays the license notice. onClose receives true when
// the user asked not to see it again.
func ShowLaunchNotice(window fyne.Window, onClose func(dontShowAgain bool)) {
	message := widget.NewLabel(LicenseNotice)
	message.Wrapping = fyne.TextWrapWord
	dontShow := widget.NewCheck("Don't show this again", nil)

	content := container.NewVBox(message, dontShow)
	d := dialog.NewCustom("Welcome to "+version.AppName, "OK", content, window)
	d.SetOnClosed(func() {
		if onClose != nil {
			onClose(dontShow.Checked)
		}
	})
	d.Resize(fyne.NewSize(420, 180))
	d.Show()
}

// ConfirmQuit asks before closing the application.
func ConfirmQuit(window fyne.Window, onQuit func()) {
	dialog.ShowConfirm("Quit", "Do you want to quit?", func(ok bool) {
		if ok {
			onQuit()
		}
	}, window)
}
