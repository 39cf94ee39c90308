// Command recovrctl holds one-off admin tasks that run against the
// configured store and job queues: seeding the COMPANY account, hashing
// passwords, and pushing dead-lettered jobs back onto their queues.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"recovr/internal/config"
	"recovr/internal/dto"
	"recovr/internal/infra"
	"recovr/internal/model"
	"recovr/internal/repository"
	"recovr/internal/service"
	"recovr/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "recovrctl",
	Short:         "RECOVR admin tasks",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errMemoryStore guards commands whose writes would vanish with the process.
var errMemoryStore = errors.New("STORE_DRIVER=memory keeps data in the server process; point recovrctl at redis or postgres")

// ── seed-admin ────────────────────────────────────────────────────────────────

var seedAdmin dto.RegisterRequest

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the COMPANY administrator account",
	RunE:  runSeedAdmin,
}

func runSeedAdmin(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.StoreDriver == "memory" {
		return errMemoryStore
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	var rdb *redis.Client
	if cfg.StoreDriver == "redis" {
		if rdb, err = infra.NewRedis(cfg.RedisURL); err != nil {
			return err
		}
		defer rdb.Close()
	}
	store, err := infra.OpenStore(ctx, cfg, rdb)
	if err != nil {
		return err
	}

	seedAdmin.Role = model.RoleCompany
	auth := service.NewAuthService(repository.NewUserRepository(store), cfg)
	user, err := auth.CreateUser(ctx, seedAdmin)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s account %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}

// ── hash-password ─────────────────────────────────────────────────────────────

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for a password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := service.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

// ── requeue-dlq ───────────────────────────────────────────────────────────────

var requeueLimit int

var requeueDLQCmd = &cobra.Command{
	Use:   "requeue-dlq <queue>",
	Short: "Move dead-lettered jobs back onto their queue (receipt, email, voice, video)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		rdb, err := infra.NewRedis(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()

		queue := args[0]
		if !strings.HasPrefix(queue, "jobs:") {
			queue = "jobs:" + queue
		}
		moved, err := worker.RequeueDLQ(cmd.Context(), rdb, queue, requeueLimit)
		if err != nil {
			return fmt.Errorf("requeue %s: %w", queue, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "requeued %d job(s) from %s%s\n", moved, worker.DLQPrefix, queue)
		return nil
	},
}

func init() {
	f := seedAdminCmd.Flags()
	f.StringVar(&seedAdmin.Name, "name", "Head Office", "display name")
	f.StringVar(&seedAdmin.Email, "email", "", "login email")
	f.StringVar(&seedAdmin.Phone, "phone", "", "phone number")
	f.StringVar(&seedAdmin.CNIC, "cnic", "", "13-digit CNIC")
	f.StringVar(&seedAdmin.Password, "password", "", "initial password")
	for _, name := range []string{"email", "phone", "cnic", "password"} {
		_ = seedAdminCmd.MarkFlagRequired(name)
	}

	requeueDLQCmd.Flags().IntVar(&requeueLimit, "limit", 100, "maximum entries to move")

	rootCmd.AddCommand(seedAdminCmd, hashPasswordCmd, requeueDLQCmd)
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("recovrctl failed")
		os.Exit(1)
	}
}
