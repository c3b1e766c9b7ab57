package gui

import (
	"encoding/json"

	"github.com/asticode/go-astilectron"
	"go.uber.org/zap"

	"github.com/wildbits/wildbits/db"
	"github.com/wildbits/wildbits/settings"
)

const (
	GUI_MESSAGE_ERROR           = "error"
	GUI_MESSAGE_UPDATE_PROGRESS = "updateProgress"
	GUI_MESSAGE_REPLY           = "reply"
	GUI_MESSAGE_LOAD_SETTINGS   = "loadSettings"
	GUI_MESSAGE_SAVE_SETTINGS   = "saveSettings"
)

// GUI message. Commands carry their arguments as a JSON object in Payload;
// Id is echoed back in the reply of a long-running command.
type Message struct {
	Id      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Payload string `json:"payload"`
}

// Reply of a long-running command
type AsyncReply struct {
	Id     string `json:"id"`
	Name   string `json:"name"`
	Result any    `json:"result"`
}

// GUI version of the app
type GUI struct {
	logger   *zap.SugaredLogger
	settings *settings.AppSettings
	session  *Session
	Window   *astilectron.Window
}

// Constructor for GUI
func NewGUI(l *zap.SugaredLogger, s *settings.AppSettings, args []string) *GUI {
	g := &GUI{
		logger:   l,
		settings: s,
	}
	g.session = NewSession(l, s, args)
	g.session.SetProgress(g)
	return g
}

// Clean up, flushes the added names
func (g *GUI) Defer() {
	if _, err := g.session.Execute("close", nil); err != nil {
		g.logger.Error(err)
	}
}

// Handle communication with the frontend
func (g *GUI) HandleMessage(m *astilectron.EventMessage) interface{} {
	// Decode the message
	msg := Message{}
	if err := m.Unmarshal(&msg); err != nil {
		g.logger.Errorf("Failed to parse client message: %s", err)
		return ""
	}

	g.logger.Debugf("Received message from client [%v]", msg.Name)

	switch msg.Name {
	case GUI_MESSAGE_LOAD_SETTINGS:
		return g.settings.ToJSON()

	case GUI_MESSAGE_SAVE_SETTINGS:
		if err := g.saveSettings(msg.Payload); err != nil {
			g.logger.Error(err)
			g.Send(GUI_MESSAGE_ERROR, err.Error())
		}
		return ""
	}

	if IsLongRunning(msg.Name) {
		go g.runAsync(msg)
		return ""
	}

	retValue := g.encode(g.session.Reply(msg.Name, []byte(msg.Payload)))
	g.logger.Debugf("Server response [%v]", len(retValue))
	return retValue
}

func (g *GUI) runAsync(msg Message) {
	result := g.session.Reply(msg.Name, []byte(msg.Payload))
	g.Send(GUI_MESSAGE_REPLY, g.encode(AsyncReply{Id: msg.Id, Name: msg.Name, Result: result}))
}

func (g *GUI) encode(v any) string {
	out, err := json.Marshal(v)
	if err != nil {
		g.logger.Error(err)
		out, _ = json.Marshal(newErrorReply(err))
	}
	return string(out)
}

// Save settings
func (g *GUI) saveSettings(settingsJSON string) error {
	if err := g.settings.Load([]byte(settingsJSON)); err != nil {
		return err
	}
	g.settings.Save()
	return nil
}

// Update progress on operations
// Implements db.ProgressUpdater interface
func (g *GUI) UpdateProgress(curr int, total int, message string) {
	progressMessage := db.ProgressUpdate{
		Curr:    curr,
		Total:   total,
		Message: message,
	}
	g.logger.Debugf("%v (%v/%v)", message, curr, total)

	msg, err := json.Marshal(progressMessage)
	if err != nil {
		g.logger.Error(err)
		return
	}
	g.Send(GUI_MESSAGE_UPDATE_PROGRESS, string(msg))
}

// Send a message to the window
func (g *GUI) Send(name string, message string) {
	if g.Window == nil {
		return
	}
	g.Window.SendMessage(Message{
		Name:    name,
		Payload: message,
	},
		func(m *astilectron.EventMessage) {},
	)
}
