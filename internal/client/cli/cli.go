package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/tempora-app/tempora/internal/client/api"
	"github.com/tempora-app/tempora/internal/client/iocli"
	"github.com/tempora-app/tempora/internal/client/store"
)

// Cli wires the commands to the API client and the local store
type Cli struct {
	apiClient *api.Client
	store     *store.Storage
	io        iocli.IO
}

// New creates a Cli
func New(apiClient *api.Client, storage *store.Storage, io iocli.IO) *Cli {
	return &Cli{
		apiClient: apiClient,
		store:     storage,
		io:        io,
	}
}

// Run dispatches a command
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return c.runRegister(ctx)
	case "login":
		return c.runLogin(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "add":
		return c.runAdd(ctx, args)
	case "list":
		return c.runList(ctx)
	case "done":
		return c.runDone(ctx, args)
	case "sync":
		return c.runSync(ctx)
	default:
		c.PrintUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// PrintUsage prints the command reference
func (c *Cli) PrintUsage() {
	c.io.Println("Tempora - personal productivity sync client")
	c.io.Println("")
	c.io.Println("Usage: tempora [flags] <command> [arguments]")
	c.io.Println("")
	c.io.Println("Commands:")
	c.io.Println("  register    Create a new account")
	c.io.Println("  login       Authenticate and store the session")
	c.io.Println("  logout      Revoke the session")
	c.io.Println("  status      Show session and server sync status")
	c.io.Println("  add         Add a task (add <title> [--due YYYY-MM-DD] [--priority low|medium|high])")
	c.io.Println("  list        List cached tasks")
	c.io.Println("  done        Mark a task completed (done <id>)")
	c.io.Println("  sync        Push local edits and pull server changes")
	c.io.Println("")
	c.io.Println("Flags:")
	c.io.Println("  -server URL   Server URL (default http://localhost:8080)")
	c.io.Println("  -db PATH      Path to local database")
}

// accessToken returns a valid access token, refreshing the pair when the
// stored one has expired.
func (c *Cli) accessToken(ctx context.Context) (string, error) {
	auth, err := c.store.GetAuth(ctx)
	if err != nil {
		if err == store.ErrAuthNotFound {
			return "", fmt.Errorf("not authenticated, run 'tempora login' first")
		}
		return "", fmt.Errorf("failed to get auth data: %w", err)
	}

	if !auth.Expired() {
		return auth.AccessToken, nil
	}

	tokens, err := c.apiClient.Refresh(ctx, auth.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("session expired, run 'tempora login' again: %w", err)
	}

	auth.AccessToken = tokens.AccessToken
	auth.RefreshToken = tokens.RefreshToken
	auth.ExpiresAt = time.Now().Unix() + tokens.ExpiresIn

	if err := c.store.SaveAuth(ctx, auth); err != nil {
		return "", fmt.Errorf("failed to save refreshed session: %w", err)
	}

	return auth.AccessToken, nil
}
