// Command bankload imports YAML question banks and can bootstrap an admin user.
//
//	bankload -bank tests.yaml [-assets ./images] [-admin name:password]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	auth "github.com/mind-engage/mindengage-iq/internal/auth/middleware"
	"github.com/mind-engage/mindengage-iq/internal/bank"
	"github.com/mind-engage/mindengage-iq/internal/config"
	"github.com/mind-engage/mindengage-iq/internal/db"
	"github.com/mind-engage/mindengage-iq/internal/quiz"
	"github.com/mind-engage/mindengage-iq/internal/storage"
)

func main() {
	var (
		bankPath  = flag.String("bank", "", "YAML question bank to import")
		assetsDir = flag.String("assets", "", "directory image paths are relative to (default: the bank's directory)")
		admin     = flag.String("admin", "", "create an admin user, as username:password")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(*bankPath, *assetsDir, *admin, logger); err != nil {
		logger.Error("bankload failed", "error", err)
		os.Exit(1)
	}
}

func run(bankPath, assetsDir, admin string, logger *slog.Logger) error {
	if bankPath == "" && admin == "" {
		return errors.New("nothing to do: pass -bank and/or -admin")
	}
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer dbh.Close()

	if admin != "" {
		name, pass, ok := strings.Cut(admin, ":")
		if !ok {
			return errors.New("-admin wants username:password")
		}
		u, err := auth.NewUserStore(dbh).Create(ctx, name, pass, name, auth.RoleAdmin)
		switch {
		case errors.Is(err, auth.ErrUserExists):
			logger.Info("admin already exists", "username", name)
		case err != nil:
			return fmt.Errorf("create admin: %w", err)
		default:
			logger.Info("admin created", "username", u.Username, "id", u.ID)
		}
	}
	if bankPath == "" {
		return nil
	}

	f, err := os.Open(bankPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if assetsDir == "" {
		assetsDir = filepath.Dir(bankPath)
	}
	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}
	svc := quiz.NewService(quiz.NewSQLStore(dbh, cfg.DBDriver), quiz.WithLogger(logger))

	tests, err := bank.NewLoader(svc, bs, os.DirFS(assetsDir)).Load(ctx, f)
	for _, t := range tests {
		logger.Info("imported test", "id", t.ID, "title", t.Title, "questions", len(t.Questions))
	}
	return err
}
