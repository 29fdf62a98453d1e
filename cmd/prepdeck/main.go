package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/prepdeck/backend/internal/blob"
	"github.com/prepdeck/backend/internal/catalog"
	"github.com/prepdeck/backend/internal/genai"
	"github.com/prepdeck/backend/internal/handler"
	"github.com/prepdeck/backend/internal/ledger"
	"github.com/prepdeck/backend/internal/model"
	"github.com/prepdeck/backend/internal/qcache"
	"github.com/prepdeck/backend/internal/ratelimit"
	"github.com/prepdeck/backend/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "prepdeck",
		Short: "AP study backend with AI-generated questions",
	}

	serve := serveCmd()
	root.AddCommand(serve, primeCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `prepdeck --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addLLMFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "Model for STEM subjects")
	f.String("llm-humanities-model", "", "Model for humanities subjects (defaults to --llm-model)")
	f.Float32("llm-temperature", 0.7, "Sampling temperature")
	f.Int("llm-max-tokens", 1024, "Maximum response tokens")
	f.Duration("gen-timeout", 90*time.Second, "Per-question generation timeout")
}

func addBlobFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("s3-endpoint", "", "S3 endpoint (empty = in-memory blob store)")
	f.String("s3-access-key", "", "S3 access key")
	f.String("s3-secret-key", "", "S3 secret key")
	f.String("s3-bucket", "prepdeck-questions", "S3 bucket for question blobs")
	f.Bool("s3-ssl", true, "Use TLS for S3 connections")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP study server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "prepdeck.db", "SQLite database path")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-password", "", "Initial admin password (or set PREPDECK_ADMIN_PASSWORD)")
	f.Float64("rate-rps", 1, "Per-client question fetches per second (0 = unlimited)")
	f.Int("rate-burst", 5, "Per-client fetch burst")
	addLLMFlags(cmd)
	addBlobFlags(cmd)
	addCommonFlags(cmd)
	return cmd
}

func primeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prime",
		Short: "Pre-generate questions into the blob store and exit",
		RunE:  runPrime,
	}
	f := cmd.Flags()
	f.StringP("subject", "s", "", "Subject to prime (required)")
	f.StringP("topic", "t", "", "Topic to prime (empty = every unit of the subject)")
	addLLMFlags(cmd)
	addBlobFlags(cmd)
	addCommonFlags(cmd)

	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export attempt records as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "prepdeck.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addCommonFlags(cmd)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("PREPDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("prepdeck")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/prepdeck")
	v.AddConfigPath("/etc/prepdeck")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func newGenerator(ctx context.Context, v *viper.Viper) (*genai.Client, error) {
	humanitiesModel := v.GetString("llm-humanities-model")
	if humanitiesModel == "" {
		humanitiesModel = v.GetString("llm-model")
	}
	client := genai.New(genai.Config{
		BaseURL:         v.GetString("llm-url"),
		APIKey:          v.GetString("llm-key"),
		CoreModel:       v.GetString("llm-model"),
		HumanitiesModel: humanitiesModel,
		Temperature:     float32(v.GetFloat64("llm-temperature")),
		MaxTokens:       v.GetInt("llm-max-tokens"),
	})
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK",
		"url", v.GetString("llm-url"),
		"model", v.GetString("llm-model"),
		"humanities_model", humanitiesModel,
	)
	return client, nil
}

func newBlobStore(ctx context.Context, v *viper.Viper) (blob.Store, error) {
	endpoint := v.GetString("s3-endpoint")
	if endpoint == "" {
		slog.Warn("no S3 endpoint configured, questions will not survive restarts")
		return blob.NewMemStore(), nil
	}

	s3, err := blob.NewS3Store(ctx, blob.S3Config{
		Endpoint:  endpoint,
		AccessKey: v.GetString("s3-access-key"),
		SecretKey: v.GetString("s3-secret-key"),
		Bucket:    v.GetString("s3-bucket"),
		UseSSL:    v.GetBool("s3-ssl"),
	})
	if err != nil {
		return nil, fmt.Errorf("connect blob store: %w", err)
	}
	slog.Info("blob store OK", "endpoint", endpoint, "bucket", v.GetString("s3-bucket"))
	return s3, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed default admin user if no users exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	if err := db.CleanupExpiredSessions(); err != nil {
		slog.Warn("expired session cleanup failed", "error", err)
	}

	gen, err := newGenerator(ctx, v)
	if err != nil {
		return err
	}

	blobs, err := newBlobStore(ctx, v)
	if err != nil {
		return err
	}

	cache := qcache.New(gen, blobs, qcache.WithGenTimeout(v.GetDuration("gen-timeout")))
	defer cache.Close()

	var limiter *ratelimit.Limiter
	if rps := v.GetFloat64("rate-rps"); rps > 0 {
		limiter = ratelimit.New(rps, v.GetInt("rate-burst"))
		defer limiter.Close()
	}

	h := handler.New(db, cache, ledger.New(db, blobs), blobs, limiter, handler.Config{
		SecureCookies: v.GetBool("secure-cookies"),
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr, "subjects", catalog.Subjects())
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-shutdownCtx.Done():
	}

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func runPrime(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	subject := v.GetString("subject")
	topic := v.GetString("topic")

	var topics []string
	if topic != "" {
		topics = []string{topic}
	} else {
		n := catalog.Units(subject)
		if n == 0 {
			return fmt.Errorf("unknown subject %q: pass --topic explicitly", subject)
		}
		for i := 1; i <= n; i++ {
			topics = append(topics, fmt.Sprintf("Unit %d", i))
		}
	}

	gen, err := newGenerator(ctx, v)
	if err != nil {
		return err
	}
	blobs, err := newBlobStore(ctx, v)
	if err != nil {
		return err
	}

	cache := qcache.New(gen, blobs, qcache.WithGenTimeout(v.GetDuration("gen-timeout")))
	defer cache.Close()

	for _, t := range topics {
		q, err := cache.Prime(ctx, subject, t)
		if err != nil {
			return fmt.Errorf("prime %s / %s: %w", subject, t, err)
		}
		slog.Info("primed question", "subject", subject, "topic", t, "id", q.ID)
	}
	return nil
}

type resultsExport struct {
	ExportedAt time.Time             `json:"exported_at"`
	Attempts   []model.AttemptRecord `json:"attempts"`
	Progress   []model.ProgressEntry `json:"progress"`
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	attempts, err := db.ListAllAttempts()
	if err != nil {
		return fmt.Errorf("list attempts: %w", err)
	}
	progress, err := db.ListAllProgress()
	if err != nil {
		return fmt.Errorf("list progress: %w", err)
	}

	data, err := json.MarshalIndent(resultsExport{
		ExportedAt: time.Now(),
		Attempts:   attempts,
		Progress:   progress,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or PREPDECK_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
