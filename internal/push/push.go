package push

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"catalogcsv/internal/config"
)

// CommandRunner executes one external command to completion.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, stdin io.Reader) error
}

// ExecRunner runs commands with os/exec, streaming their output.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r ExecRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}

// Pusher uploads a product CSV through the store's import CLI: register the shop with
// the API key on stdin, test the connection, then create the import.
type Pusher struct {
	runner  CommandRunner
	command string
	prefix  []string
	store   string
	apiKey  string
	log     *logrus.Entry
}

func New(cfg config.Config, runner CommandRunner, logger *logrus.Logger) (*Pusher, error) {
	if err := cfg.Require("SHOPIFY_STORE", cfg.ShopifyStore); err != nil {
		return nil, err
	}
	if err := cfg.Require("SHOPIFY_API_KEY", cfg.ShopifyAPIKey); err != nil {
		return nil, err
	}
	if err := cfg.Require("PUSH_COMMAND", cfg.PushCommand); err != nil {
		return nil, err
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pusher{
		runner:  runner,
		command: cfg.PushCommand,
		prefix:  cfg.PushArgs,
		store:   cfg.ShopifyStore,
		apiKey:  cfg.ShopifyAPIKey,
		log:     logger.WithFields(logrus.Fields{"component": "push", "store": cfg.ShopifyStore, "apiKey": MaskKey(cfg.ShopifyAPIKey)}),
	}, nil
}

func (p *Pusher) Push(ctx context.Context, csvPath string) error {
	if _, err := os.Stat(csvPath); err != nil {
		return fmt.Errorf("push: %w", err)
	}

	steps := []struct {
		name  string
		args  []string
		stdin io.Reader
	}{
		{"shop add", []string{"shop", "add", p.store}, strings.NewReader(p.apiKey + "\n")},
		{"shop test", []string{"shop", "test"}, nil},
		{"import create", []string{"import", "create", csvPath}, nil},
	}

	for _, step := range steps {
		args := append(append([]string{}, p.prefix...), step.args...)
		p.log.WithField("step", step.name).Info("running import cli")
		if err := p.runner.Run(ctx, p.command, args, step.stdin); err != nil {
			return fmt.Errorf("push %s: %w", step.name, err)
		}
	}
	return nil
}

// MaskKey shows only the first characters of an API key.
func MaskKey(key string) string {
	if len(key) <= 6 {
		return strings.Repeat("*", len(key))
	}
	return key[:6] + "..."
}
