// ui.go
package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jroimartin/gocui"

	"ircchat/internal/client"
)

type chatUI struct {
	gui  *gocui.Gui
	sess *client.Session
	addr string

	msgView    string
	roomView   string
	statusView string
	inputView  string

	mu       sync.Mutex
	exitMsg  string
	timedOut bool
}

func newChatUI(sess *client.Session, addr string) (*chatUI, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, err
	}

	ui := &chatUI{
		gui:        g,
		sess:       sess,
		addr:       addr,
		msgView:    "messages",
		roomView:   "rooms",
		statusView: "status",
		inputView:  "input",
		exitMsg:    "Exited",
	}

	g.SetManagerFunc(ui.layout)
	ui.subscribe()
	return ui, nil
}

// subscribe wires session events into view updates. The callbacks run on
// the receive-loop goroutine; gocui.Gui.Update is safe to call from there.
func (ui *chatUI) subscribe() {
	ui.sess.On(client.EventLine, func(room, _ string) {
		if room == ui.sess.Rooms.Current() {
			ui.redrawMessages()
		}
		ui.redrawRooms()
	})
	ui.sess.On(client.EventRoom, func(string) {
		ui.redrawMessages()
		ui.redrawRooms()
		ui.redrawStatus()
	})
	ui.sess.On(client.EventExit, func(reason string, timedOut bool) {
		ui.mu.Lock()
		ui.exitMsg = reason
		ui.timedOut = timedOut
		ui.mu.Unlock()
		ui.gui.Update(func(*gocui.Gui) error {
			return gocui.ErrQuit
		})
	})
}

func (ui *chatUI) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	sidebarWidth := 20
	msgWidth := maxX - sidebarWidth - 1
	msgHeight := maxY - 5

	if v, err := g.SetView(ui.msgView, 0, 0, msgWidth, msgHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Messages"
		v.Wrap = true
		v.Autoscroll = true
		ui.redrawMessages()
	}

	if v, err := g.SetView(ui.roomView, msgWidth+1, 0, maxX-1, msgHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Rooms"
		v.Wrap = true
		ui.redrawRooms()
	}

	if v, err := g.SetView(ui.statusView, 0, msgHeight+1, maxX-1, msgHeight+3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
		v.Wrap = true
		ui.redrawStatus()
	}

	if v, err := g.SetView(ui.inputView, 0, msgHeight+3, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Input"
		v.Editable = true
		v.Wrap = true

		if _, err := g.SetCurrentView(ui.inputView); err != nil {
			return err
		}
	}

	return nil
}

func (ui *chatUI) redrawMessages() {
	ui.gui.Update(func(g *gocui.Gui) error {
		v, err := g.View(ui.msgView)
		if err != nil {
			return err
		}
		v.Clear()
		for _, line := range ui.sess.Rooms.CurrentLines() {
			fmt.Fprintln(v, line)
		}
		return nil
	})
}

func (ui *chatUI) redrawRooms() {
	ui.gui.Update(func(g *gocui.Gui) error {
		v, err := g.View(ui.roomView)
		if err != nil {
			return err
		}
		v.Clear()
		current := ui.sess.Rooms.Current()
		for _, name := range ui.sess.Rooms.Names() {
			prefix := "  "
			if name == current {
				prefix = "* "
			}
			fmt.Fprintf(v, "%s%s\n", prefix, name)
		}
		return nil
	})
}

func (ui *chatUI) redrawStatus() {
	ui.gui.Update(func(g *gocui.Gui) error {
		v, err := g.View(ui.statusView)
		if err != nil {
			return err
		}
		v.Clear()
		fmt.Fprintf(v, "Connected to %s | Room: %s | User: %s",
			ui.addr, ui.sess.Rooms.Current(), ui.sess.Username())
		return nil
	})
}

func (ui *chatUI) keybindings() error {
	if err := ui.gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone,
		func(*gocui.Gui, *gocui.View) error {
			ui.sess.Close("Exited", false)
			return nil
		}); err != nil {
		return err
	}

	return ui.gui.SetKeybinding(ui.inputView, gocui.KeyEnter, gocui.ModNone, ui.handleInput)
}

func (ui *chatUI) handleInput(_ *gocui.Gui, v *gocui.View) error {
	input := strings.TrimSpace(v.Buffer())
	v.Clear()
	v.SetCursor(0, 0)
	if input == "" {
		return nil
	}

	ui.sess.Input(input)
	ui.redrawMessages()
	ui.redrawRooms()
	ui.redrawStatus()
	return nil
}

// Run blocks in the UI main loop and returns the exit message recorded by
// the session's exit event.
func (ui *chatUI) Run() (exitMsg string, timedOut bool, err error) {
	if err := ui.keybindings(); err != nil {
		return "", false, err
	}

	if err := ui.gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return "", false, err
	}

	ui.mu.Lock()
	defer ui.mu.Unlock()
	return ui.exitMsg, ui.timedOut, nil
}

func (ui *chatUI) Close() {
	ui.gui.Close()
}
