package e2e

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"chatd/moderation"
	"chatd/protocol"
	"chatd/repositories"
	"chatd/runtime"
	"chatd/server"
	"chatd/services"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/suite"
)

// BaseChatSuite boots the whole server stack in-process on a loopback
// listener. Every test gets a fresh store, a fresh registry, and a fresh
// listener, so scenarios cannot leak state into each other.
type BaseChatSuite struct {
	suite.Suite

	Config    Config
	Registry  *runtime.SessionRegistry
	Directory repositories.IUserDirectory

	cancel    context.CancelFunc
	serveDone chan struct{}
	addr      string
}

func (s *BaseChatSuite) SetupSuite() {
	cfg, err := LoadConfig()
	s.Require().NoError(err)
	s.Config = cfg
}

func (s *BaseChatSuite) SetupTest() {
	req := s.Require()

	db, err := badger.Open(badger.
		DefaultOptions(s.T().TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })

	index, err := bluge.OpenWriter(bluge.DefaultConfig(s.T().TempDir()))
	req.NoError(err)
	s.T().Cleanup(func() { _ = index.Close() })

	log := slog.Default()
	s.Directory = repositories.NewUserDirectory(db)
	s.Registry = runtime.NewSessionRegistry()
	mailbox := repositories.NewMailboxStore(db, index, s.Directory, log)
	moderator, err := moderation.NewModerator([]string{"badword"}, '*')
	req.NoError(err)

	srv := server.New(log, server.Config{
		Addr:          s.Config.ListenAddr,
		ReadTimeout:   s.Config.ReadTimeout,
		WriteTimeout:  s.Config.WriteTimeout,
		ShutdownGrace: 2 * time.Second,
	},
		services.NewAuthService(s.Directory, s.Registry),
		services.NewChatService(mailbox, s.Directory, moderator, log),
		s.Registry,
	)
	req.NoError(srv.Listen())
	s.addr = srv.Addr()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.serveDone = make(chan struct{})
	go func() {
		defer close(s.serveDone)
		_ = srv.Serve(ctx)
	}()
}

func (s *BaseChatSuite) TearDownTest() {
	s.Shutdown()
}

// Shutdown stops the server and waits for the accept loop to drain.
// Idempotent, so scenarios that shut down explicitly can still tear down.
func (s *BaseChatSuite) Shutdown() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	select {
	case <-s.serveDone:
	case <-time.After(s.Config.Wait):
		s.Require().Fail("server did not drain within the wait budget")
	}
}

// chatClient is a line-oriented test client over a real TCP connection.
type chatClient struct {
	suite *BaseChatSuite
	conn  net.Conn
	r     *bufio.Reader
}

func (s *BaseChatSuite) Dial() *chatClient {
	conn, err := net.Dial("tcp", s.addr)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	return &chatClient{suite: s, conn: conn, r: bufio.NewReader(conn)}
}

func (c *chatClient) Send(frame string) {
	_, err := fmt.Fprintf(c.conn, "%s\n", frame)
	c.suite.Require().NoError(err)
}

// SendRaw writes bytes without a delimiter, for frames split across
// several writes.
func (c *chatClient) SendRaw(fragment string) {
	_, err := c.conn.Write([]byte(fragment))
	c.suite.Require().NoError(err)
}

// ReadFrame returns the next frame or an error once the wait budget is
// spent. Callers that expect silence probe with a short deadline instead.
func (c *chatClient) ReadFrame(timeout time.Duration) (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ExpectResponse asserts the next frame is /response:<status>... and
// returns the full frame for payload checks.
func (c *chatClient) ExpectResponse(status protocol.Status) string {
	frame, err := c.ReadFrame(c.suite.Config.Wait)
	c.suite.Require().NoError(err)
	c.suite.Require().True(
		strings.HasPrefix(frame, protocol.Response(status)),
		"expected a %q response, got %q", status, frame)
	return frame
}

// ExpectMessage asserts the next non-response frame is a relayed message
// and returns it. Delivery rides the idle poll, so the read waits.
func (c *chatClient) ExpectMessage() string {
	deadline := time.Now().Add(c.suite.Config.Wait)
	for time.Now().Before(deadline) {
		frame, err := c.ReadFrame(time.Until(deadline))
		if err != nil {
			break
		}
		if strings.HasPrefix(frame, "/msg:") {
			return frame
		}
	}
	c.suite.Require().Fail("no message frame arrived within the wait budget")
	return ""
}

// ExpectSilence asserts no message frame shows up for a few poll cycles.
func (c *chatClient) ExpectSilence() {
	probe := 3 * c.suite.Config.ReadTimeout
	frame, err := c.ReadFrame(probe)
	if err != nil {
		return
	}
	c.suite.Require().False(strings.HasPrefix(frame, "/msg:"),
		"expected silence, got %q", frame)
}

func isTimeout(err error) bool {
	netErr, ok := err.(net.Error)
	return ok && netErr.Timeout()
}

// SignUpAndIn registers the login and signs it in, asserting both steps.
func (c *chatClient) SignUpAndIn(login, password, displayName string) {
	c.Send(fmt.Sprintf("/signup:%s:%s:%s", login, password, displayName))
	c.ExpectResponse(protocol.StatusSuccess)
	c.Send(fmt.Sprintf("/signin:%s:%s", login, password))
	c.ExpectResponse(protocol.StatusSuccess)
}
