package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"netpanel/internal/auth"
	"netpanel/internal/client"
	"netpanel/internal/config"
	"netpanel/internal/domain"
	"netpanel/internal/session"
)

const usage = `Usage: netpanel [flags] <command> [args]

Commands:
  presets                 list the presets served by the backend
  snapshots               list the stored snapshots
  apply-preset <uuid>     run a preset against the inventory and apply it
  restore <uuid>          apply a stored snapshot
  snapshot <name>         capture the active configuration as a snapshot
  hash-password           read a password from stdin and print its bcrypt hash

Flags:
`

func main() {
	configPath := flag.String("config", "", "Config file path (default: search standard locations)")
	baseURL := flag.String("url", "", "Backend URL (overrides config)")
	username := flag.String("user", "", "Username (overrides config)")
	password := flag.String("password", "", "Password (default: $NETPANEL_PASSWORD)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("netpanel: ")

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	if cmd == "hash-password" {
		if err := hashPassword(); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *baseURL != "" {
		cfg.Client.BaseURL = *baseURL
	}
	if *username != "" {
		cfg.Client.Username = *username
	}
	if *password == "" {
		*password = os.Getenv("NETPANEL_PASSWORD")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(cfg.Client.BaseURL, client.WithTimeout(cfg.Client.Timeout.Duration()))
	if cfg.Client.Username != "" {
		if err := c.Login(ctx, cfg.Client.Username, *password); err != nil {
			log.Fatalf("Failed to log in as %s: %v", cfg.Client.Username, err)
		}
	}

	if err := run(ctx, c, cmd, args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, _, err = config.LoadFromPath(path)
	} else {
		cfg, _, err = config.Load()
	}
	return cfg, err
}

func run(ctx context.Context, c *client.Client, cmd string, args []string) error {
	switch cmd {
	case "presets":
		return listPresets(ctx, c)
	case "snapshots":
		return listSnapshots(ctx, c)
	case "apply-preset":
		if len(args) != 1 {
			return errors.New("apply-preset needs a preset uuid")
		}
		return applyPreset(ctx, c, args[0])
	case "restore":
		if len(args) != 1 {
			return errors.New("restore needs a snapshot uuid")
		}
		return restoreSnapshot(ctx, c, args[0])
	case "snapshot":
		if len(args) != 1 {
			return errors.New("snapshot needs a name")
		}
		return takeSnapshot(ctx, c, args[0])
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func listPresets(ctx context.Context, c *client.Client) error {
	presets, err := c.Presets(ctx)
	if err != nil {
		return fmt.Errorf("list presets: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UUID\tNAME\tDESCRIPTION")
	for _, p := range presets {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.UUID, p.Name, p.Description)
	}
	return tw.Flush()
}

func listSnapshots(ctx context.Context, c *client.Client) error {
	snapshots, err := c.Snapshots(ctx)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UUID\tNAME\tMACHINES\tINTNETS\tDELETABLE\tCREATED")
	for i := range snapshots {
		s := &snapshots[i]
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%v\t%s\n",
			s.UUID, s.Name, s.MachineCount(), len(s.Intnets), s.Deletable, s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// newSession loads the active configuration into a fresh session
func newSession(ctx context.Context, c *client.Client) (*session.Session, error) {
	sess := session.New(c)
	if err := sess.ResetFlow(ctx); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return sess, nil
}

func applyPreset(ctx context.Context, c *client.Client, uuid string) error {
	sess, err := newSession(ctx, c)
	if err != nil {
		return err
	}
	if err := sess.LoadPreset(ctx, uuid); err != nil {
		return fmt.Errorf("run preset %s: %w", uuid, err)
	}
	if err := sess.ApplyNetworkConfig(ctx); err != nil {
		return fmt.Errorf("apply configuration: %w", err)
	}

	printSummary(sess)
	return nil
}

func restoreSnapshot(ctx context.Context, c *client.Client, uuid string) error {
	sess, err := newSession(ctx, c)
	if err != nil {
		return err
	}
	if err := sess.LoadSnapshot(ctx, uuid); err != nil {
		return fmt.Errorf("load snapshot %s: %w", uuid, err)
	}
	if err := sess.ApplyNetworkConfig(ctx); err != nil {
		return fmt.Errorf("apply configuration: %w", err)
	}

	printSummary(sess)
	return nil
}

func takeSnapshot(ctx context.Context, c *client.Client, name string) error {
	sess, err := newSession(ctx, c)
	if err != nil {
		return err
	}
	created, err := sess.SaveSnapshot(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("a snapshot named %q already exists", name)
		}
		return fmt.Errorf("save snapshot: %w", err)
	}
	fmt.Printf("Snapshot %s created (%s)\n", created.Name, created.UUID)
	return nil
}

func printSummary(sess *session.Session) {
	intnets := sess.IntnetConfig().Sorted()
	fmt.Printf("Applied %d machines across %d intnets\n", len(sess.Machines()), len(intnets))
	for _, entry := range intnets {
		fmt.Printf("  %s: %s\n", domain.IntnetLabel(entry.Number), strings.Join(entry.Machines, ", "))
	}
}

func hashPassword() error {
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read password: %w", err)
	}
	hash, err := auth.HashPassword(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
