package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/jbweber/homelab/croft/internal/command"
	"github.com/jbweber/homelab/croft/internal/inventory"
)

// consoleHeaders label the pretty-printed console output per query.
var consoleHeaders = map[command.Name]string{
	command.ListConnected:  "Connected machines",
	command.ListAuthorized: "Authorized machines",
	command.ListAll:        "All machines",
	command.ListDisks:      "Disks",
}

// Console is the operator-facing command loop. It reads one command
// per line from its input, answers the four inventory queries with
// pretty-printed JSON, and triggers server shutdown on EXIT. It is
// not a privileged backdoor: all reads go through the same inventory
// facade the wire protocol uses.
type Console struct {
	in        io.Reader
	out       io.Writer
	inventory *inventory.Service
	shutdown  func()
	log       *zap.Logger
}

func NewConsole(in io.Reader, out io.Writer, inv *inventory.Service, shutdown func(), log *zap.Logger) *Console {
	return &Console{
		in:        in,
		out:       out,
		inventory: inv,
		shutdown:  shutdown,
		log:       log.Named("console"),
	}
}

// Run processes console commands until EXIT or end of input.
func (c *Console) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.EqualFold(line, "EXIT") {
			fmt.Fprintln(c.out, "shutting down server...")
			c.shutdown()
			return nil
		}

		req, err := command.Parse(line)
		if err != nil || !req.Name.IsList() {
			fmt.Fprintln(c.out, "unknown console command")
			continue
		}

		result, err := c.inventory.Collect(ctx, req.Name)
		if err != nil {
			c.log.Error("inventory query failed", zap.String("command", string(req.Name)), zap.Error(err))
			fmt.Fprintf(c.out, "query failed: %v\n", err)
			continue
		}
		text, err := inventory.Pretty(result)
		if err != nil {
			fmt.Fprintf(c.out, "failed to render result: %v\n", err)
			continue
		}
		fmt.Fprintf(c.out, "%s:\n%s\n", consoleHeaders[req.Name], text)
	}
	return scanner.Err()
}
