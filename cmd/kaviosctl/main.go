package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pranjalb21/kaviosPix/internal/auth"
	"github.com/pranjalb21/kaviosPix/internal/config"
	"github.com/pranjalb21/kaviosPix/internal/database"
	"github.com/pranjalb21/kaviosPix/internal/repository"
	"github.com/pranjalb21/kaviosPix/internal/services"
	"github.com/pranjalb21/kaviosPix/internal/validation"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env bundles what every command needs. The caller must defer close().
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *mongo.Database
	client *mongo.Client
}

func newEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if cfg.Mongo.URI == "" {
		return nil, errors.New("mongodb.uri is not configured")
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	db, client, err := database.ConnectMongo(context.Background(), cfg.Mongo, "kaviosctl", logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	return &env{cfg: cfg, logger: logger, db: db, client: client}, nil
}

func (e *env) collections() repository.Collections {
	return repository.Collections{Users: e.cfg.Mongo.Users, Albums: e.cfg.Mongo.Albums, Images: e.cfg.Mongo.Images}
}

func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = e.client.Disconnect(ctx)
	_ = e.logger.Sync()
}

var rootCmd = &cobra.Command{
	Use:           "kaviosctl",
	Short:         "Administration tool for kaviosPix",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var ensureIndexesCmd = &cobra.Command{
	Use:   "ensure-indexes",
	Short: "Create the MongoDB indexes the API relies on",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		if err := repository.EnsureIndexes(ctx, e.db, e.collections()); err != nil {
			return fmt.Errorf("ensuring indexes: %w", err)
		}
		fmt.Println("Indexes are up to date.")
		return nil
	},
}

var createUserCmd = &cobra.Command{
	Use:   "create-user <email>",
	Short: "Register an account without going through the API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword()
		if err != nil {
			return err
		}

		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		users := repository.NewMongoUserRepo(e.db, e.collections().Users)
		svc := services.NewUserService(users, auth.NewBcryptHasher(e.cfg.JWT.BcryptCost), nil, e.logger)
		u, err := svc.Register(cmd.Context(), validation.Credentials{Email: args[0], Password: password})
		if err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		fmt.Printf("Created %s\n", u.Email)
		fmt.Printf("User UID: %s\n", u.UserUID)
		return nil
	},
}

// readPassword prompts on a terminal and reads one line otherwise.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to the config file")
	rootCmd.AddCommand(ensureIndexesCmd)
	rootCmd.AddCommand(createUserCmd)
}
