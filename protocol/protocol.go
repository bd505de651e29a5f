// Package protocol implements the wire contract: single-line text frames,
// colon-delimited commands, length-bounded at MaxFrameLength. Responses
// use the /response:<status>[:<payload>] grammar; relayed messages use
// /msg:<sender>:<text>.
package protocol

import (
	"fmt"
	"strings"

	"chatd/errors"
)

// MaxFrameLength bounds a single frame, delimiter excluded. Anything
// longer is a protocol error fatal to that connection only.
const MaxFrameLength = 1024

type Status string

const (
	StatusSuccess   Status = "success"
	StatusFail      Status = "fail"
	StatusBusy      Status = "busy"
	StatusAvailable Status = "available"
	StatusLoggedIn  Status = "loggedin"
	StatusShutdown  Status = "shutdown"
)

type CommandKind int

const (
	CmdCheckLogin CommandKind = iota
	CmdSignUp
	CmdSignIn
	CmdLogout
	CmdRemove
	CmdQuit
	CmdText
)

// Command is the parsed form of one inbound frame.
type Command struct {
	Kind        CommandKind
	Login       string
	Password    string
	DisplayName string
	Text        string
}

// ParseCommand turns a raw frame into a typed command. A leading slash
// marks a protocol command; anything else is chat text. The last field of
// each command may contain colons (SplitN keeps it whole), every earlier
// field may not.
func ParseCommand(frame string) (Command, error) {
	if len(frame) > MaxFrameLength {
		return Command{}, errors.ErrFrameTooLong
	}
	if !strings.HasPrefix(frame, "/") {
		if frame == "" {
			return Command{}, errors.ErrMalformedFrame
		}
		return Command{Kind: CmdText, Text: frame}, nil
	}

	name, _, _ := strings.Cut(frame, ":")
	switch name {
	case "/checklogin":
		fields := strings.SplitN(frame, ":", 2)
		if len(fields) != 2 || fields[1] == "" {
			return Command{}, errors.ErrMalformedFrame
		}
		return Command{Kind: CmdCheckLogin, Login: fields[1]}, nil

	case "/signup":
		fields := strings.SplitN(frame, ":", 4)
		if len(fields) != 4 {
			return Command{}, errors.ErrMalformedFrame
		}
		return Command{
			Kind:        CmdSignUp,
			Login:       fields[1],
			Password:    fields[2],
			DisplayName: fields[3],
		}, nil

	case "/signin":
		fields := strings.SplitN(frame, ":", 3)
		if len(fields) != 3 {
			return Command{}, errors.ErrMalformedFrame
		}
		return Command{Kind: CmdSignIn, Login: fields[1], Password: fields[2]}, nil

	case "/logout":
		return Command{Kind: CmdLogout}, nil

	case "/remove":
		return Command{Kind: CmdRemove}, nil

	case "/exit", "/quit":
		return Command{Kind: CmdQuit}, nil
	}
	return Command{}, errors.ErrMalformedFrame
}

// SplitDirected recognizes the "@name text" private form. ok is false for
// plain broadcast text.
func SplitDirected(text string) (receiver, body string, ok bool) {
	if !strings.HasPrefix(text, "@") {
		return "", "", false
	}
	receiver, body, found := strings.Cut(text[1:], " ")
	if !found || receiver == "" || body == "" {
		return "", "", false
	}
	return receiver, body, true
}

// Response renders a /response frame, delimiter excluded.
func Response(status Status, payload ...string) string {
	if len(payload) == 0 {
		return fmt.Sprintf("/response:%s", status)
	}
	return fmt.Sprintf("/response:%s:%s", status, strings.Join(payload, ":"))
}

// MessageFrame renders one relayed message. Private messages keep the
// @receiver marker so the recipient sees how they were addressed.
func MessageFrame(sender, receiver, text string) string {
	if receiver != "" {
		return fmt.Sprintf("/msg:%s:@%s %s", sender, receiver, text)
	}
	return fmt.Sprintf("/msg:%s:%s", sender, text)
}
