// Package console is the server operator's interactive surface: listing
// registered users and live sessions, kicking sessions, removing offline
// accounts, searching message history, and shutting the server down.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"chatd/repositories"
	"chatd/runtime"
	"chatd/services"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

const searchLimit = 20

type Console struct {
	log       *slog.Logger
	in        io.Reader
	out       io.Writer
	auth      services.IAuthService
	chat      services.IChatService
	registry  *runtime.SessionRegistry
	directory repositories.IUserDirectory
	shutdown  func()
}

func New(
	log *slog.Logger,
	in io.Reader,
	out io.Writer,
	auth services.IAuthService,
	chat services.IChatService,
	registry *runtime.SessionRegistry,
	directory repositories.IUserDirectory,
	shutdown func(),
) *Console {
	return &Console{
		log:       log,
		in:        in,
		out:       out,
		auth:      auth,
		chat:      chat,
		registry:  registry,
		directory: directory,
		shutdown:  shutdown,
	}
}

// Run reads operator commands until EOF or /quit. A stdin read cannot be
// interrupted, so Run is started on its own goroutine and simply stops
// being read from when the process exits.
func (c *Console) Run(ctx context.Context) {
	fmt.Fprintln(c.out, "Chat admin console ready. Type /help for commands.")

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(line, ":")
		switch cmd {
		case "/help":
			c.printHelp()
		case "/users":
			c.printUsers()
		case "/active":
			c.printActive()
		case "/kick":
			c.kick(arg)
		case "/remove":
			c.remove(arg)
		case "/search":
			c.search(ctx, arg)
		case "/quit", "/exit":
			fmt.Fprintln(c.out, color.Yellow.Sprint("Shutting down..."))
			c.shutdown()
			return
		default:
			fmt.Fprintln(c.out, "Unknown command, type /help")
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `Available commands:
 /users          list registered users
 /active         list live sessions
 /kick:<login>   close that login's connection
 /remove:<login> delete an offline account
 /search:<term>  search message history
 /quit           stop the server`)
}

func (c *Console) printUsers() {
	records, err := c.directory.List()
	if err != nil {
		fmt.Fprintln(c.out, color.Red.Sprint("Failed to list users: "), err)
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Login", "Display Name", "Logged In", "Created"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, r := range records {
		table.Append([]string{
			r.Login,
			r.DisplayName,
			fmt.Sprintf("%t", r.LoggedIn),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
}

func (c *Console) printActive() {
	sessions := c.registry.ListActive()
	if len(sessions) == 0 {
		fmt.Fprintln(c.out, "No active sessions")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Login", "Connection", "Established"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, s := range sessions {
		table.Append([]string{
			s.Login,
			s.ConnectionID.String()[:8],
			s.EstablishedAt.Format("15:04:05"),
		})
	}
	table.Render()
}

func (c *Console) kick(login string) {
	if login == "" {
		fmt.Fprintln(c.out, "Usage: /kick:<login>")
		return
	}
	if c.registry.Kick(login) {
		fmt.Fprintf(c.out, "%s\n", color.Green.Sprintf("Kicked '%s'", login))
		c.log.Info("Session kicked by operator", "login", login)
	} else {
		fmt.Fprintf(c.out, "No active session for '%s'\n", login)
	}
}

func (c *Console) remove(login string) {
	if login == "" {
		fmt.Fprintln(c.out, "Usage: /remove:<login>")
		return
	}
	if err := c.auth.RemoveOffline(login); err != nil {
		fmt.Fprintf(c.out, "%s\n", color.Red.Sprintf("Cannot remove '%s': %v", login, err))
		return
	}
	fmt.Fprintf(c.out, "%s\n", color.Green.Sprintf("Removed '%s'", login))
	c.log.Info("Account removed by operator", "login", login)
}

func (c *Console) search(ctx context.Context, term string) {
	if term == "" {
		fmt.Fprintln(c.out, "Usage: /search:<term>")
		return
	}
	hits, err := c.chat.SearchHistory(ctx, term, searchLimit)
	if err != nil {
		fmt.Fprintln(c.out, color.Red.Sprint("Search failed: "), err)
		return
	}
	if len(hits) == 0 {
		fmt.Fprintln(c.out, "No matches")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Sender", "Kind", "Text"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, hit := range hits {
		table.Append([]string{hit.Sender, hit.Kind, hit.Text})
	}
	table.Render()
}
