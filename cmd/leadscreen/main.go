package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"leadscreen/internal/config"
	"leadscreen/internal/connectors"
	gmailconnector "leadscreen/internal/connectors/gmail"
	imapconnector "leadscreen/internal/connectors/imap"
	"leadscreen/internal/events"
	"leadscreen/internal/listener"
	"leadscreen/internal/pipeline"
	"leadscreen/internal/storage"
	"leadscreen/internal/suppression"
	"leadscreen/internal/web"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log, err := zap.NewProduction()
	must(err)
	defer log.Sync()

	store, err := suppression.Open(cfg.SuppressionDBURL)
	must(err)
	defer store.Close()

	cmd := os.Args[1]
	switch cmd {
	case "check":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "lead list file (.xlsx or .csv)")
		client := fs.String("client", cfg.ClientScope, "client code to scope the lookup")
		months := fs.Int("months", cfg.RecencyMonths, "recency window in months, 0 disables date status")
		split := fs.Bool("split", cfg.SplitStatusColumns, "write separate match and client status columns")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}

		svc := pipeline.NewService(store, nil, cfg, events.Nop{})
		opts := pipeline.RunOptions{ClientScope: *client, RecencyMonths: *months, SplitStatusColumns: *split}

		var summary pipeline.RunSummary
		if strings.EqualFold(filepath.Ext(*input), ".csv") {
			summary, err = svc.CheckCSVFile(context.Background(), *input, opts)
		} else {
			summary, err = svc.CheckWorkbookFile(context.Background(), *input, opts)
		}
		must(err)
		fmt.Printf("check done rows=%d checked=%d matched=%d skipped=%d output=%s\n",
			summary.Rows, summary.Checked, summary.Matched, summary.Skipped, summary.OutputPath)
	case "serve":
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()

		svc := pipeline.NewService(store, db, cfg, events.NewZapEmitter(log))
		srv := web.NewServer(svc, cfg, log)
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		must(http.ListenAndServe(cfg.HTTPAddr, srv.Router()))
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])

		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()

		conn, err := makeConnector(context.Background(), cfg, *provider)
		must(err)
		intake := connectors.NewIntakeService(db, cfg.RawMailDir, conn)
		result, err := intake.FetchAndArchive(context.Background(), *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d archived=%d\n", *provider, result.Fetched, result.Archived)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])

		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()

		svc := pipeline.NewService(store, db, cfg, events.NewZapEmitter(log))
		opts := svc.DefaultOptions()
		if strings.TrimSpace(*messageID) != "" {
			res, err := svc.ProcessByProviderMessageID(context.Background(), *provider, *messageID, opts)
			must(err)
			fmt.Printf("processed message id=%d detected=%v screened=%d output=%s\n",
				res.MessageID, res.Detected, res.Screened, res.OutputPath)
			return
		}
		processed, screened, err := svc.ProcessPending(context.Background(), *batch, *provider, opts)
		must(err)
		fmt.Printf("processed pending messages=%d leads=%d\n", processed, screened)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		messageID := fs.Int("messageId", 0, "internal message id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *messageID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--messageId and --out are required"))
		}

		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()

		leads, err := db.GetLeads(*messageID)
		must(err)
		if len(leads) == 0 {
			must(fmt.Errorf("no screened leads for messageId=%d", *messageID))
		}
		must(pipeline.ExportLeadsToXLSX(leads, *out))
		fmt.Printf("exported %d leads to %s\n", len(leads), *out)
	case "mail:listen":
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()

		s := listener.NewService(db, store, cfg, log)
		must(s.Run(context.Background()))
	default:
		usage()
		os.Exit(1)
	}
}

func makeConnector(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func usage() {
	fmt.Println("usage: leadscreen <command>")
	fmt.Println("commands:")
	fmt.Println("  check --input=leads.xlsx [--client=C1] [--months=12] [--split=true]")
	fmt.Println("  serve")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process --provider=gmail|imap [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  export:xlsx --messageId=1 --out=./out/result.xlsx")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
