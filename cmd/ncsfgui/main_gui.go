// Command ncsfgui is a desktop playlist player for NCSF/2SF files, built
// on Fyne. It wraps the same pkg/player, pkg/stream and pkg/audio pipeline
// as cmd/ncsfplay behind a window instead of a terminal.
package main

func main() {
	gui := NewNCSFPlayerGUI()
	gui.Run()
}
