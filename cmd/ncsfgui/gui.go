package main

import (
	"fmt"
	"image/color"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/ncsfplay/ncsf-player/internal/cliutil"
	"github.com/ncsfplay/ncsf-player/pkg/audio"
	"github.com/ncsfplay/ncsf-player/pkg/player"
	"github.com/ncsfplay/ncsf-player/pkg/sample"
	"github.com/ncsfplay/ncsf-player/pkg/stream"
	"github.com/ncsfplay/ncsf-player/pkg/wavwriter"
)

type NCSFPlayerGUI struct {
	app    fyne.App
	window fyne.Window

	mutex        sync.Mutex
	loaded       *cliutil.Loaded
	seqIndex     int
	stream       *stream.Stream
	driver       *audio.Player
	audioOutput  audio.Output
	userStopped  bool

	playlist       *Playlist
	currentIndex   int
	selectedIndex  int
	playlistWidget *widget.List
	shuffle        bool
	repeatMode     RepeatMode

	titleLabel   *widget.Label
	artistLabel  *widget.Label
	commentLabel *widget.Label
	timeLabel    *widget.Label
	progressBar  *widget.ProgressBar
	volumeSlider *widget.Slider
	playButton   *widget.Button
	pauseButton  *widget.Button
	stopButton   *widget.Button
	prevButton   *widget.Button
	nextButton   *widget.Button
	loopCheck    *widget.Check
	interpSelect *widget.Select
	shuffleCheck *widget.Check
	repeatButton *widget.Button
	statusLabel  *widget.Label

	addButton      *widget.Button
	removeButton   *widget.Button
	clearButton    *widget.Button
	moveUpButton   *widget.Button
	moveDownButton *widget.Button
	playlistLabel  *widget.Label

	currentFile     string
	durationSamples int64

	volume     float64
	sampleRate int
	bufferSize int
	interp     string
	loop       bool

	ticker *time.Ticker
	done   chan bool

	uiMutex    sync.Mutex
	uiProgress float64
	uiTimeText string
	uiStatus   string
}

type RepeatMode int

const (
	RepeatNone RepeatMode = iota
	RepeatOne
	RepeatAll
)

// modernTheme mirrors the teacher's light/dark color scheme.
type modernTheme struct{}

func (m modernTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	if variant == theme.VariantLight {
		switch name {
		case theme.ColorNameBackground:
			return color.NRGBA{250, 250, 250, 255}
		case theme.ColorNameButton:
			return color.NRGBA{240, 240, 240, 255}
		case theme.ColorNameForeground:
			return color.NRGBA{20, 20, 20, 255}
		case theme.ColorNamePrimary:
			return color.NRGBA{33, 150, 243, 255}
		case theme.ColorNameHover:
			return color.NRGBA{230, 230, 230, 255}
		case theme.ColorNameInputBackground:
			return color.NRGBA{255, 255, 255, 255}
		case theme.ColorNamePlaceHolder:
			return color.NRGBA{160, 160, 160, 255}
		case theme.ColorNameScrollBar:
			return color.NRGBA{200, 200, 200, 255}
		case theme.ColorNameShadow:
			return color.NRGBA{0, 0, 0, 66}
		}
	} else {
		switch name {
		case theme.ColorNameBackground:
			return color.NRGBA{30, 30, 30, 255}
		case theme.ColorNameButton:
			return color.NRGBA{50, 50, 50, 255}
		case theme.ColorNameForeground:
			return color.NRGBA{240, 240, 240, 255}
		case theme.ColorNamePrimary:
			return color.NRGBA{64, 196, 255, 255}
		case theme.ColorNameHover:
			return color.NRGBA{70, 70, 70, 255}
		case theme.ColorNameInputBackground:
			return color.NRGBA{40, 40, 40, 255}
		case theme.ColorNamePlaceHolder:
			return color.NRGBA{120, 120, 120, 255}
		case theme.ColorNameScrollBar:
			return color.NRGBA{80, 80, 80, 255}
		case theme.ColorNameShadow:
			return color.NRGBA{0, 0, 0, 128}
		}
	}
	return theme.DefaultTheme().Color(name, variant)
}

func (m modernTheme) Font(style fyne.TextStyle) fyne.Resource { return theme.DefaultTheme().Font(style) }
func (m modernTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}
func (m modernTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 6
	case theme.SizeNameInlineIcon:
		return 24
	case theme.SizeNameScrollBar:
		return 16
	}
	return theme.DefaultTheme().Size(name)
}

func NewNCSFPlayerGUI() *NCSFPlayerGUI {
	p := &NCSFPlayerGUI{
		app:           app.New(),
		volume:        1.0,
		sampleRate:    44100,
		bufferSize:    2048,
		interp:        "linear",
		loop:          false,
		done:          make(chan bool),
		playlist:      NewPlaylist("Default"),
		currentIndex:  -1,
		selectedIndex: -1,
		repeatMode:    RepeatNone,
	}
	p.app.Settings().SetTheme(&modernTheme{})
	p.createUI()
	return p
}

func (p *NCSFPlayerGUI) createUI() {
	p.window = p.app.NewWindow("ncsfplay - NCSF/2SF Player")
	p.window.Resize(fyne.NewSize(900, 650))

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Add Files...", p.addFiles),
		fyne.NewMenuItem("Add Folder...", p.addFolder),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Playlist...", p.savePlaylist),
		fyne.NewMenuItem("Load Playlist...", p.loadPlaylist),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export Current to WAV...", p.exportWAV),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", p.app.Quit),
	)
	playlistMenu := fyne.NewMenu("Playlist",
		fyne.NewMenuItem("Clear All", p.clearPlaylist),
		fyne.NewMenuItem("Sort by Title", func() { p.sortPlaylist(SortByTitle) }),
		fyne.NewMenuItem("Sort by Artist", func() { p.sortPlaylist(SortByArtist) }),
		fyne.NewMenuItem("Sort by Duration", func() { p.sortPlaylist(SortByDuration) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Shuffle", p.shufflePlaylist),
	)
	helpMenu := fyne.NewMenu("Help", fyne.NewMenuItem("About", p.showAbout))
	p.window.SetMainMenu(fyne.NewMainMenu(fileMenu, playlistMenu, helpMenu))

	split := container.NewHSplit(p.createMainContent(), p.createPlaylistContent())
	split.SetOffset(0.6)

	p.window.SetContent(split)
	p.window.SetOnClosed(p.cleanup)
	p.startUpdateTicker()
}

func (p *NCSFPlayerGUI) createMainContent() fyne.CanvasObject {
	p.titleLabel = widget.NewLabel("No file loaded")
	p.titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	p.artistLabel = widget.NewLabel("")
	p.commentLabel = widget.NewLabel("")

	infoCard := widget.NewCard("Now Playing", "", container.NewVBox(
		p.titleLabel, p.artistLabel, p.commentLabel,
	))

	p.timeLabel = widget.NewLabel("00:00 / 00:00")
	p.timeLabel.Alignment = fyne.TextAlignCenter
	p.progressBar = widget.NewProgressBar()
	timeContainer := container.NewVBox(p.progressBar, p.timeLabel)

	p.prevButton = widget.NewButtonWithIcon("", theme.MediaSkipPreviousIcon(), p.playPrevious)
	p.playButton = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), p.play)
	p.pauseButton = widget.NewButtonWithIcon("", theme.MediaPauseIcon(), p.pause)
	p.stopButton = widget.NewButtonWithIcon("", theme.MediaStopIcon(), p.stop)
	p.nextButton = widget.NewButtonWithIcon("", theme.MediaSkipNextIcon(), p.playNext)
	p.playButton.Disable()
	p.pauseButton.Disable()
	p.stopButton.Disable()
	p.prevButton.Disable()
	p.nextButton.Disable()

	buttonContainer := container.NewHBox(
		layout.NewSpacer(), p.prevButton, p.playButton, p.pauseButton, p.stopButton, p.nextButton, layout.NewSpacer(),
	)

	p.volumeSlider = widget.NewSlider(0, 2)
	p.volumeSlider.Value = 1.0
	p.volumeSlider.Step = 0.01
	volumeLabel := widget.NewLabel("100%")
	p.volumeSlider.OnChanged = func(value float64) {
		p.mutex.Lock()
		p.volume = value
		p.mutex.Unlock()
		volumeLabel.SetText(fmt.Sprintf("%.0f%%", value*100))
	}
	volumeContainer := container.NewBorder(nil, nil,
		container.NewHBox(widget.NewIcon(theme.VolumeUpIcon()), widget.NewLabel("Volume:")),
		volumeLabel, p.volumeSlider,
	)

	p.loopCheck = widget.NewCheck("Loop Track", func(checked bool) {
		p.mutex.Lock()
		p.loop = checked
		p.mutex.Unlock()
	})

	p.interpSelect = widget.NewSelect(
		[]string{"none", "linear", "lagrange4", "lagrange6", "sinc", "simplesinc", "lanczos"},
		func(selected string) {
			p.mutex.Lock()
			p.interp = selected
			p.mutex.Unlock()
		},
	)
	p.interpSelect.SetSelected("linear")

	p.shuffleCheck = widget.NewCheck("Shuffle", func(checked bool) { p.shuffle = checked })
	p.repeatButton = widget.NewButton("Repeat: Off", p.toggleRepeatMode)

	optionsContainer := container.NewHBox(
		p.loopCheck,
		widget.NewLabel("Interpolation:"), p.interpSelect,
		widget.NewSeparator(),
		p.shuffleCheck, p.repeatButton,
	)

	tipCard := widget.NewCard("", "", widget.NewLabelWithStyle(
		"Use the Add button or menu to add NCSF/2SF files to your playlist",
		fyne.TextAlignCenter, fyne.TextStyle{Italic: true},
	))

	p.statusLabel = widget.NewLabel("Ready")
	statusBar := container.NewBorder(widget.NewSeparator(), nil, nil, p.statusLabel, nil)

	content := container.NewVBox(
		infoCard, widget.NewSeparator(), timeContainer, buttonContainer,
		widget.NewSeparator(), volumeContainer, optionsContainer,
		layout.NewSpacer(), tipCard, statusBar,
	)
	return container.NewPadded(content)
}

func (p *NCSFPlayerGUI) createPlaylistContent() fyne.CanvasObject {
	p.playlistLabel = widget.NewLabel("Playlist (0 items)")
	p.playlistLabel.TextStyle = fyne.TextStyle{Bold: true}

	p.playlistWidget = widget.NewList(
		func() int { return p.playlist.Size() },
		func() fyne.CanvasObject {
			title := widget.NewLabel("")
			title.Truncation = fyne.TextTruncateEllipsis
			duration := widget.NewLabel("")
			return container.NewBorder(nil, nil, nil, duration, title)
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			box := item.(*fyne.Container)
			titleLabel := box.Objects[0].(*widget.Label)
			durationLabel := box.Objects[1].(*widget.Label)

			playlistItem, _ := p.playlist.Get(int(id))
			if playlistItem == nil {
				return
			}
			titleLabel.SetText(fmt.Sprintf("%s - %s", playlistItem.Title, playlistItem.Artist))
			durationLabel.SetText(formatSeconds(playlistItem.Duration))
			if int(id) == p.currentIndex {
				titleLabel.TextStyle = fyne.TextStyle{Bold: true}
			} else {
				titleLabel.TextStyle = fyne.TextStyle{}
			}
		},
	)
	p.playlistWidget.OnSelected = func(id widget.ListItemID) {
		p.selectedIndex = int(id)
		p.removeButton.Enable()
		p.moveUpButton.Enable()
		p.moveDownButton.Enable()
		p.playFromIndex(int(id))
	}
	p.playlistWidget.OnUnselected = func(id widget.ListItemID) {
		p.selectedIndex = -1
		p.removeButton.Disable()
		p.moveUpButton.Disable()
		p.moveDownButton.Disable()
	}

	p.addButton = widget.NewButtonWithIcon("Add", theme.ContentAddIcon(), p.addFiles)
	p.removeButton = widget.NewButtonWithIcon("Remove", theme.ContentRemoveIcon(), p.removeSelected)
	p.clearButton = widget.NewButtonWithIcon("Clear", theme.DeleteIcon(), p.clearPlaylist)
	p.moveUpButton = widget.NewButtonWithIcon("", theme.MoveUpIcon(), p.moveSelectedUp)
	p.moveDownButton = widget.NewButtonWithIcon("", theme.MoveDownIcon(), p.moveSelectedDown)
	p.removeButton.Disable()
	p.moveUpButton.Disable()
	p.moveDownButton.Disable()

	buttonBar := container.NewHBox(
		p.addButton, p.removeButton, p.clearButton, layout.NewSpacer(), p.moveUpButton, p.moveDownButton,
	)

	return widget.NewCard("", "", container.NewBorder(
		container.NewVBox(p.playlistLabel, widget.NewSeparator()),
		buttonBar, nil, nil,
		container.NewScroll(p.playlistWidget),
	))
}

func (p *NCSFPlayerGUI) startUpdateTicker() {
	p.ticker = time.NewTicker(100 * time.Millisecond)
	go func() {
		for {
			select {
			case <-p.ticker.C:
				p.prepareUIUpdate()
			case <-p.done:
				return
			}
		}
	}()
	go func() {
		for {
			select {
			case <-time.After(100 * time.Millisecond):
				if p.window == nil {
					return
				}
				p.applyUIUpdate()
			case <-p.done:
				return
			}
		}
	}()
}

func (p *NCSFPlayerGUI) prepareUIUpdate() {
	p.mutex.Lock()
	drv := p.driver
	st := p.stream
	duration := p.durationSamples
	userStopped := p.userStopped
	p.mutex.Unlock()

	var position int64
	playing := drv != nil && drv.IsPlaying()
	paused := drv != nil && drv.IsPaused()
	if st != nil {
		position = st.Position()
	}

	if drv != nil && !playing && !userStopped {
		go p.onTrackFinished()
	}

	p.uiMutex.Lock()
	defer p.uiMutex.Unlock()
	if duration > 0 {
		p.uiProgress = float64(position) / float64(duration)
		p.uiTimeText = fmt.Sprintf("%s / %s", formatSamples(position, p.sampleRate), formatSamples(duration, p.sampleRate))
	} else {
		p.uiProgress = 0
		p.uiTimeText = "00:00 / 00:00"
	}
	switch {
	case playing && !paused:
		p.uiStatus = "Playing"
	case paused:
		p.uiStatus = "Paused"
	default:
		p.uiStatus = "Ready"
	}
}

func (p *NCSFPlayerGUI) applyUIUpdate() {
	if p.window == nil || p.progressBar == nil {
		return
	}
	p.uiMutex.Lock()
	progress, timeText, status := p.uiProgress, p.uiTimeText, p.uiStatus
	p.uiMutex.Unlock()

	p.progressBar.SetValue(progress)
	p.timeLabel.SetText(timeText)
	p.statusLabel.SetText(status)
}

// onTrackFinished runs once per natural end-of-stream, advancing the
// playlist the same way the teacher's playbackLoop did inline.
func (p *NCSFPlayerGUI) onTrackFinished() {
	p.mutex.Lock()
	if p.driver == nil {
		p.mutex.Unlock()
		return
	}
	p.userStopped = true
	p.mutex.Unlock()

	switch p.repeatMode {
	case RepeatOne:
		p.playFromIndex(p.currentIndex)
	case RepeatAll:
		p.playNext()
	default:
		if p.currentIndex < p.playlist.Size()-1 {
			p.playNext()
		} else {
			p.stop()
		}
	}
}

func (p *NCSFPlayerGUI) addFiles() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		p.addFileToPlaylist(reader.URI().Path())
	}, p.window)
}

func (p *NCSFPlayerGUI) addFolder() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		files, err := uri.List()
		if err != nil {
			dialog.ShowError(err, p.window)
			return
		}
		added := 0
		for _, file := range files {
			ext := strings.ToLower(filepath.Ext(file.Name()))
			if ext == ".ncsf" || ext == ".2sf" || ext == ".minincsf" {
				p.addFileToPlaylist(file.Path())
				added++
			}
		}
		if added > 0 {
			dialog.ShowInformation("Files Added", fmt.Sprintf("Added %d files to playlist", added), p.window)
		}
	}, p.window)
}

func (p *NCSFPlayerGUI) addFileToPlaylist(path string) {
	loaded, err := cliutil.Load(path, true)
	if err != nil {
		log.Printf("Failed to load %s: %v", path, err)
		return
	}
	seqIndex := cliutil.SequenceIndex(loaded.Container, -1)
	lengthSamples, _ := cliutil.ResolveLengthAndFade(loaded.SDAT, seqIndex, loaded.Tags, p.sampleRate)

	title, _ := loaded.Tags.Get("title")
	artist, _ := loaded.Tags.Get("artist")
	comment, _ := loaded.Tags.Get("comment")
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if artist == "" {
		artist = "Unknown"
	}

	item := &PlaylistItem{
		Path:     path,
		Title:    title,
		Artist:   artist,
		Duration: float64(lengthSamples) / float64(p.sampleRate),
		Comment:  comment,
	}
	p.playlist.Add(item)
	p.updatePlaylistLabel()
	p.playlistWidget.Refresh()

	if p.playlist.Size() == 1 {
		p.playButton.Enable()
		p.prevButton.Enable()
		p.nextButton.Enable()
		p.currentIndex = 0
	}
}

func (p *NCSFPlayerGUI) loadFile(path string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.teardownLocked()

	loaded, err := cliutil.Load(path, true)
	if err != nil {
		dialog.ShowError(err, p.window)
		return
	}
	seqIndex := cliutil.SequenceIndex(loaded.Container, -1)
	lengthSamples, fadeSamples := cliutil.ResolveLengthAndFade(loaded.SDAT, seqIndex, loaded.Tags, p.sampleRate)

	p.loaded = loaded
	p.seqIndex = seqIndex
	p.currentFile = path
	p.durationSamples = lengthSamples + fadeSamples

	title, _ := loaded.Tags.Get("title")
	artist, _ := loaded.Tags.Get("artist")
	comment, _ := loaded.Tags.Get("comment")
	if title == "" {
		title = filepath.Base(path)
	}
	p.titleLabel.SetText(title)
	p.artistLabel.SetText("by " + artist)
	p.commentLabel.SetText(comment)
	p.progressBar.SetValue(0)
	p.timeLabel.SetText(fmt.Sprintf("00:00 / %s", formatSamples(p.durationSamples, p.sampleRate)))

	p.playButton.Enable()
	p.prevButton.Enable()
	p.nextButton.Enable()
}

// teardownLocked stops and releases the current playback session.
// Callers must hold p.mutex.
func (p *NCSFPlayerGUI) teardownLocked() {
	if p.driver != nil {
		p.driver.Stop()
		p.driver = nil
	}
	if p.audioOutput != nil {
		p.audioOutput.Close()
		p.audioOutput = nil
	}
	p.stream = nil
	p.userStopped = true
}

func (p *NCSFPlayerGUI) play() {
	p.mutex.Lock()

	if p.loaded == nil {
		p.mutex.Unlock()
		return
	}
	if p.driver != nil {
		p.mutex.Unlock()
		return
	}

	pl, err := player.NewFromSequenceIndex(p.loaded.SDAT, p.seqIndex)
	if err != nil {
		p.mutex.Unlock()
		dialog.ShowError(err, p.window)
		return
	}

	kind, err := cliutil.ParseInterpolation(p.interp)
	if err != nil {
		kind = sample.Linear
	}
	opts := stream.Options{
		SampleRate:    p.sampleRate,
		Kind:          kind,
		PlayForever:   p.loop,
		LengthSamples: p.durationSamples,
	}
	opts.UserVolume = p.volume

	st := stream.New(pl, opts)
	audioOut, err := audio.NewStreamingOtoOutput()
	if err != nil {
		p.mutex.Unlock()
		dialog.ShowError(err, p.window)
		return
	}

	driver := audio.NewPlayer(st, audioOut)
	if err := driver.Start(p.sampleRate, p.bufferSize); err != nil {
		p.mutex.Unlock()
		dialog.ShowError(err, p.window)
		return
	}

	p.stream = st
	p.driver = driver
	p.audioOutput = audioOut
	p.userStopped = false
	p.mutex.Unlock()

	p.playButton.Disable()
	p.pauseButton.Enable()
	p.stopButton.Enable()
}

func (p *NCSFPlayerGUI) pause() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.driver == nil {
		return
	}
	if p.driver.IsPaused() {
		p.driver.Resume()
		p.pauseButton.SetIcon(theme.MediaPauseIcon())
	} else {
		p.driver.Pause()
		p.pauseButton.SetIcon(theme.MediaPlayIcon())
	}
}

func (p *NCSFPlayerGUI) stop() {
	p.mutex.Lock()
	p.teardownLocked()
	p.mutex.Unlock()

	p.progressBar.SetValue(0)
	p.timeLabel.SetText(fmt.Sprintf("00:00 / %s", formatSamples(p.durationSamples, p.sampleRate)))
	p.playButton.Enable()
	p.pauseButton.Disable()
	p.pauseButton.SetIcon(theme.MediaPauseIcon())
	p.stopButton.Disable()
}

func (p *NCSFPlayerGUI) playFromIndex(index int) {
	if index < 0 || index >= p.playlist.Size() {
		return
	}
	p.mutex.Lock()
	p.teardownLocked()
	p.mutex.Unlock()

	item, _ := p.playlist.Get(index)
	if item == nil {
		return
	}
	p.currentIndex = index
	p.loadFile(item.Path)
	p.play()
	p.playlistWidget.Refresh()
}

func (p *NCSFPlayerGUI) playNext() {
	if p.playlist.Size() == 0 {
		return
	}
	var nextIndex int
	if p.shuffle {
		p.playlist.Shuffle()
		nextIndex = 0
	} else {
		nextIndex = (p.currentIndex + 1) % p.playlist.Size()
		if nextIndex == 0 && p.repeatMode == RepeatNone {
			p.stop()
			return
		}
	}
	p.playFromIndex(nextIndex)
}

func (p *NCSFPlayerGUI) playPrevious() {
	if p.playlist.Size() == 0 {
		return
	}
	prevIndex := p.currentIndex - 1
	if prevIndex < 0 {
		prevIndex = p.playlist.Size() - 1
	}
	p.playFromIndex(prevIndex)
}

func (p *NCSFPlayerGUI) removeSelected() {
	if p.selectedIndex < 0 {
		return
	}
	if err := p.playlist.Remove(p.selectedIndex); err == nil {
		if p.selectedIndex == p.currentIndex {
			p.currentIndex = -1
		}
		p.selectedIndex = -1
		p.updatePlaylistLabel()
		p.playlistWidget.Refresh()
	}
}

func (p *NCSFPlayerGUI) clearPlaylist() {
	dialog.ShowConfirm("Clear Playlist", "Are you sure you want to clear the entire playlist?", func(ok bool) {
		if !ok {
			return
		}
		p.stop()
		p.playlist.Clear()
		p.currentIndex = -1
		p.updatePlaylistLabel()
		p.playlistWidget.Refresh()
		p.playButton.Disable()
	}, p.window)
}

func (p *NCSFPlayerGUI) moveSelectedUp() {
	if err := p.playlist.MoveUp(p.selectedIndex); err == nil {
		p.selectedIndex--
		p.playlistWidget.Refresh()
	}
}

func (p *NCSFPlayerGUI) moveSelectedDown() {
	if err := p.playlist.MoveDown(p.selectedIndex); err == nil {
		p.selectedIndex++
		p.playlistWidget.Refresh()
	}
}

func (p *NCSFPlayerGUI) savePlaylist() {
	dialog.ShowFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		var saveErr error
		if strings.HasSuffix(path, ".m3u") {
			saveErr = p.playlist.SaveM3U(path)
		} else {
			if !strings.HasSuffix(path, ".json") {
				path += ".json"
			}
			saveErr = p.playlist.Save(path)
		}
		if saveErr != nil {
			dialog.ShowError(saveErr, p.window)
		} else {
			dialog.ShowInformation("Success", "Playlist saved successfully", p.window)
		}
	}, p.window)
}

func (p *NCSFPlayerGUI) loadPlaylist() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		var newPlaylist *Playlist
		var loadErr error
		if strings.HasSuffix(path, ".m3u") {
			newPlaylist, loadErr = LoadM3U(path)
		} else {
			newPlaylist, loadErr = LoadPlaylist(path)
		}
		if loadErr != nil {
			dialog.ShowError(loadErr, p.window)
			return
		}

		p.stop()
		p.playlist = newPlaylist
		p.currentIndex = -1
		p.updatePlaylistLabel()
		p.playlistWidget.Refresh()
		if p.playlist.Size() > 0 {
			p.playButton.Enable()
			p.currentIndex = 0
		}
	}, p.window)
}

func (p *NCSFPlayerGUI) sortPlaylist(by SortBy) {
	p.playlist.Sort(by)
	p.playlistWidget.Refresh()
}

func (p *NCSFPlayerGUI) shufflePlaylist() {
	p.playlist.Shuffle()
	p.playlistWidget.Refresh()
}

func (p *NCSFPlayerGUI) toggleRepeatMode() {
	p.repeatMode = (p.repeatMode + 1) % 3
	switch p.repeatMode {
	case RepeatNone:
		p.repeatButton.SetText("Repeat: Off")
	case RepeatOne:
		p.repeatButton.SetText("Repeat: One")
	case RepeatAll:
		p.repeatButton.SetText("Repeat: All")
	}
}

func (p *NCSFPlayerGUI) updatePlaylistLabel() {
	p.playlistLabel.SetText(fmt.Sprintf("Playlist (%d items, %s)", p.playlist.Size(), formatSeconds(p.playlist.TotalDuration())))
}

func (p *NCSFPlayerGUI) exportWAV() {
	if p.loaded == nil {
		dialog.ShowInformation("No file loaded", "Please load an NCSF/2SF file first", p.window)
		return
	}
	dialog.ShowFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()

		progress := dialog.NewProgress("Exporting to WAV", "Processing...", p.window)
		progress.Show()
		go func() {
			err := p.exportToWAV(path)
			progress.Hide()
			if err != nil {
				dialog.ShowError(err, p.window)
			} else {
				dialog.ShowInformation("Export Complete", "WAV file exported successfully", p.window)
			}
		}()
	}, p.window)
}

func (p *NCSFPlayerGUI) exportToWAV(path string) error {
	p.mutex.Lock()
	loaded := p.loaded
	seqIndex := p.seqIndex
	durationSamples := p.durationSamples
	interp := p.interp
	p.mutex.Unlock()

	if loaded == nil {
		return fmt.Errorf("no file loaded")
	}

	pl, err := player.NewFromSequenceIndex(loaded.SDAT, seqIndex)
	if err != nil {
		return err
	}
	kind, err := cliutil.ParseInterpolation(interp)
	if err != nil {
		kind = sample.Linear
	}
	st := stream.New(pl, stream.Options{
		SampleRate:    p.sampleRate,
		Kind:          kind,
		LengthSamples: durationSamples,
	})

	out, err := cliutil.NewWAVOutput(path, p.sampleRate, wavwriter.FormatFloat32)
	if err != nil {
		return err
	}

	buf := make([]byte, 65536)
	for {
		n, rerr := st.Read(buf)
		if n > 0 {
			if werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				return werr
			}
		}
		if rerr != nil {
			break
		}
	}
	return out.Close()
}

func (p *NCSFPlayerGUI) showAbout() {
	aboutContent := container.NewVBox(
		widget.NewLabelWithStyle("ncsfplay", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		widget.NewLabel(""),
		widget.NewLabel("A desktop player for NCSF/2SF sequenced DS/GBA music files"),
		widget.NewLabel(""),
		widget.NewLabel("Decodes SDAT banks, wave archives, and SSEQ sequences directly"),
		widget.NewLabel("Go implementation with a Fyne GUI"),
		widget.NewLabel(""),
		container.NewHBox(widget.NewLabel("Features:"), widget.NewLabel("Playlist management, shuffle and repeat modes")),
		container.NewHBox(widget.NewLabel(""), widget.NewLabel("WAV export, cross-platform support")),
	)
	dialog.ShowCustom("About ncsfplay", "OK", aboutContent, p.window)
}

func (p *NCSFPlayerGUI) cleanup() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.ticker != nil {
		p.ticker.Stop()
		close(p.done)
	}
	p.teardownLocked()
}

func (p *NCSFPlayerGUI) Run() {
	p.window.ShowAndRun()
}

func formatSamples(samples int64, sampleRate int) string {
	if sampleRate <= 0 {
		return "00:00"
	}
	return formatSeconds(float64(samples) / float64(sampleRate))
}

func formatSeconds(totalSeconds float64) string {
	seconds := int64(totalSeconds)
	minutes := seconds / 60
	seconds %= 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
