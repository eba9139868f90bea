package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"work-journal/internal/bot"
	"work-journal/internal/config"
	"work-journal/internal/repository"
	"work-journal/internal/service"
	"work-journal/internal/session"
	"work-journal/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "workjournal",
		Short:         "A weekly journal of work, learning and interesting things",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server, plus the Telegram bot when configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	weeksCmd := &cobra.Command{
		Use:   "weeks",
		Short: "Print every week of the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJournal(func(journal *service.JournalService) error {
				weeks, err := journal.Weeks(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, week := range weeks {
					fmt.Fprintf(out, "%s (%s)\n", week.Label(), week.Key)
					for _, section := range week.Sections() {
						fmt.Fprintf(out, "  %s\n", section.Label)
						for _, entry := range section.Entries {
							fmt.Fprintf(out, "    #%d %s  %s\n", entry.ID, entry.DateString(), entry.Text)
						}
					}
				}
				return nil
			})
		},
	}

	digestCmd := &cobra.Command{
		Use:   "digest",
		Short: "Print the digest of the current week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJournal(func(journal *service.JournalService) error {
				text, err := service.NewDigestService(journal).WeeklyDigest(cmd.Context(), time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}

	rootCmd.AddCommand(serveCmd, weeksCmd, digestCmd)
	return rootCmd
}

func openDB(dsn string) (*gorm.DB, func(), error) {
	db, err := repository.NewDB(dsn)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {}
	if sqlDB, err := db.DB(); err == nil {
		closeFn = func() { sqlDB.Close() }
	}
	return db, closeFn, nil
}

// withJournal opens only the database; read-only commands need no secrets.
func withJournal(fn func(*service.JournalService) error) error {
	dsn := os.Getenv("DATABASE_URL")
	db, closeDB, err := openDB(dsn)
	if err != nil {
		return err
	}
	defer closeDB()
	return fn(service.NewJournalService(repository.NewEntryRepository(db)))
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, closeDB, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeDB()

	entryRepo := repository.NewEntryRepository(db)
	journal := service.NewJournalService(entryRepo)
	digestSvc := service.NewDigestService(journal)

	guard, err := session.NewGuard(session.Config{
		Secret:        []byte(cfg.SessionSecret),
		TTL:           cfg.SessionTTL,
		CookieName:    cfg.SessionCookieName,
		Secure:        cfg.SessionSecure,
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
	})
	if err != nil {
		return err
	}

	server, err := web.NewServer(journal, guard, entryRepo)
	if err != nil {
		return err
	}

	if cfg.BotEnabled() {
		telegramBot, err := bot.New(cfg.TelegramToken, cfg.TelegramOwnerID, journal, digestSvc)
		if err != nil {
			return err
		}

		scheduler := service.NewSchedulerService(time.Local)
		if _, err := scheduler.ScheduleWeekly(cfg.DigestWeekday, cfg.DigestTime, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := telegramBot.SendWeeklyDigest(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("digest: %v", err)
			}
		}); err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()

		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("bot stopped with error: %v", err)
			}
		}()
	}

	log.Println("Work journal started.")
	if err := server.Run(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Println("Shutdown complete.")
	return nil
}
