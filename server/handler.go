package server

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"chatd/errors"
	"chatd/protocol"
	"chatd/services"

	"github.com/google/uuid"
)

// handler owns one connection's protocol state machine:
// unauthenticated -> authenticated -> closed. It keeps no shared mutable
// state of its own; everything shared goes through the services.
type handler struct {
	id   uuid.UUID
	conn net.Conn
	log  *slog.Logger

	auth services.IAuthService
	chat services.IChatService

	readTimeout  time.Duration
	writeTimeout time.Duration

	writeMu sync.Mutex

	// login is non-empty exactly while authenticated. Only the handler
	// goroutine touches it.
	login string
}

func newHandler(
	log *slog.Logger,
	conn net.Conn,
	auth services.IAuthService,
	chat services.IChatService,
	readTimeout, writeTimeout time.Duration,
) *handler {
	id := uuid.New()
	return &handler{
		id:           id,
		conn:         conn,
		log:          log.With("conn", id.String()[:8], "remote", conn.RemoteAddr().String()),
		auth:         auth,
		chat:         chat,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// run reads frames until the client quits, the connection drops, or the
// frame stream turns invalid. Cleanup always releases the session, so a
// kicked or crashed connection frees its login promptly.
func (h *handler) run(ctx context.Context) {
	defer func() {
		_ = h.conn.Close()
		if h.login != "" {
			if err := h.auth.SignOut(h.login, h.id); err != nil {
				h.log.Error("Sign-out during cleanup failed", "login", h.login, "err", err)
			}
			h.login = ""
		}
		h.log.Info("Client disconnected")
	}()

	h.log.Info("Client connected")

	// The buffer is one byte larger than the ceiling: a full buffer with
	// no delimiter means the frame is oversized, not merely buffered.
	reader := bufio.NewReaderSize(h.conn, protocol.MaxFrameLength+1)

	// Fragment of an unterminated frame carried across idle polls. A
	// timed-out ReadSlice consumes and returns whatever bytes arrived
	// before the deadline; a slow typist's half frame must survive until
	// the delimiter shows up.
	var partial []byte

	for {
		if ctx.Err() != nil {
			return
		}

		_ = h.conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		line, err := reader.ReadSlice('\n')
		if err != nil {
			var netErr net.Error
			switch {
			case stderrors.As(err, &netErr) && netErr.Timeout():
				partial = append(partial, line...)
				if len(partial) > protocol.MaxFrameLength {
					h.log.Warn("Frame exceeds maximum length, closing connection")
					h.writeFrame(protocol.Response(protocol.StatusFail))
					return
				}
				// Idle: deliver whatever arrived for us meanwhile.
				h.deliverPending()
				continue
			case stderrors.Is(err, bufio.ErrBufferFull):
				h.log.Warn("Frame exceeds maximum length, closing connection")
				h.writeFrame(protocol.Response(protocol.StatusFail))
				return
			case stderrors.Is(err, io.EOF), stderrors.Is(err, net.ErrClosed):
				return
			default:
				h.log.Error("Read failed", "err", err)
				return
			}
		}

		if len(partial) > 0 {
			line = append(partial, line...)
			partial = nil
		}
		frame := strings.TrimRight(string(line), "\r\n")
		if frame == "" {
			continue
		}

		if !h.handleFrame(frame) {
			return
		}
		if h.login != "" {
			h.deliverPending()
		}
	}
}

// handleFrame processes one frame; false means the connection is done.
func (h *handler) handleFrame(frame string) bool {
	cmd, err := protocol.ParseCommand(frame)
	if err != nil {
		if stderrors.Is(err, errors.ErrFrameTooLong) {
			h.log.Warn("Oversized frame, closing connection")
			return false
		}
		h.writeFrame(protocol.Response(protocol.StatusFail))
		return true
	}

	switch cmd.Kind {
	case protocol.CmdCheckLogin:
		h.handleCheckLogin(cmd)
	case protocol.CmdSignUp:
		h.handleSignUp(cmd)
	case protocol.CmdSignIn:
		h.handleSignIn(cmd)
	case protocol.CmdLogout:
		h.handleLogout()
	case protocol.CmdRemove:
		h.handleRemove()
	case protocol.CmdText:
		h.handleText(cmd)
	case protocol.CmdQuit:
		return false
	}
	return true
}

func (h *handler) handleCheckLogin(cmd protocol.Command) {
	available, err := h.auth.CheckLogin(cmd.Login)
	if err != nil {
		h.log.Error("Login availability check failed", "err", err)
		h.writeFrame(protocol.Response(protocol.StatusFail))
		return
	}
	if available {
		h.writeFrame(protocol.Response(protocol.StatusAvailable))
	} else {
		h.writeFrame(protocol.Response(protocol.StatusBusy))
	}
}

func (h *handler) handleSignUp(cmd protocol.Command) {
	if h.login != "" {
		h.writeFrame(protocol.Response(protocol.StatusFail))
		return
	}
	if err := h.auth.SignUp(cmd.Login, cmd.Password, cmd.DisplayName); err != nil {
		h.log.Info("Sign-up rejected", "login", cmd.Login, "err", err)
		h.writeFrame(protocol.Response(protocol.StatusFail))
		return
	}
	h.log.Info("User registered", "login", cmd.Login)
	h.writeFrame(protocol.Response(protocol.StatusSuccess))
}

func (h *handler) handleSignIn(cmd protocol.Command) {
	if h.login != "" {
		h.writeFrame(protocol.Response(protocol.StatusFail))
		return
	}

	record, err := h.auth.SignIn(cmd.Login, cmd.Password, h.id, func() { _ = h.conn.Close() })
	switch {
	case stderrors.Is(err, errors.ErrAlreadyActive):
		h.writeFrame(protocol.Response(protocol.StatusLoggedIn))
	case err != nil:
		h.log.Info("Sign-in rejected", "login", cmd.Login)
		h.writeFrame(protocol.Response(protocol.StatusFail))
	default:
		h.login = cmd.Login
		h.log.Info("User signed in", "login", cmd.Login)
		h.writeFrame(protocol.Response(protocol.StatusSuccess, record.DisplayName))
	}
}

func (h *handler) handleLogout() {
	if h.login == "" {
		h.writeFrame(protocol.Response(protocol.StatusFail))
		return
	}
	if err := h.auth.SignOut(h.login, h.id); err != nil {
		h.log.Error("Sign-out failed", "login", h.login, "err", err)
		h.writeFrame(protocol.Response(protocol.StatusFail))
		return
	}
	h.log.Info("User signed out", "login", h.login)
	h.login = ""
	h.writeFrame(protocol.Response(protocol.StatusSuccess))
}

func (h *handler) handleRemove() {
	if h.login == "" {
		h.writeFrame(protocol.Response(protocol.StatusFail))
		return
	}
	if err := h.auth.RemoveAccount(h.login, h.id); err != nil {
		h.log.Error("Account removal failed", "login", h.login, "err", err)
		h.writeFrame(protocol.Response(protocol.StatusFail))
		return
	}
	h.log.Info("Account removed", "login", h.login)
	h.login = ""
	h.writeFrame(protocol.Response(protocol.StatusSuccess))
}

func (h *handler) handleText(cmd protocol.Command) {
	if h.login == "" {
		h.writeFrame(protocol.Response(protocol.StatusFail))
		return
	}
	if _, err := h.chat.Send(h.login, cmd.Text); err != nil {
		h.log.Info("Message rejected", "login", h.login, "err", err)
		h.writeFrame(protocol.Response(protocol.StatusFail))
		return
	}
	h.writeFrame(protocol.Response(protocol.StatusSuccess))
}

// deliverPending drains the handler's own mailbox to the client. Each
// message leaves the mailbox exactly once; a write failure surfaces on
// the next read instead.
func (h *handler) deliverPending() {
	if h.login == "" {
		return
	}
	messages, err := h.chat.Drain(h.login)
	if err != nil {
		h.log.Error("Mailbox drain failed", "login", h.login, "err", err)
		return
	}
	for _, m := range messages {
		h.writeFrame(protocol.MessageFrame(m.Sender, m.Receiver, m.Text))
	}
}

func (h *handler) writeFrame(frame string) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	_ = h.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	if _, err := h.conn.Write([]byte(frame + "\n")); err != nil {
		h.log.Debug("Write failed", "err", err)
	}
}
