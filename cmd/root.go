package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/helpdraft/internal/audit"
	"github.com/joescharf/helpdraft/internal/embedding"
	"github.com/joescharf/helpdraft/internal/llm"
	"github.com/joescharf/helpdraft/internal/logging"
	"github.com/joescharf/helpdraft/internal/output"
	"github.com/joescharf/helpdraft/internal/pipeline"
	"github.com/joescharf/helpdraft/internal/prompts"
	"github.com/joescharf/helpdraft/internal/tracker"
	"github.com/joescharf/helpdraft/internal/vecindex"
)

const classifierTemperature = 0.1

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui     *output.UI
	logger *slog.Logger

	trackerClient tracker.Client
	docIndex      vecindex.Index

	verbose    bool
	dryRun     bool
	promptPath string

	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "helpdraft",
	Short: "Draft end-user help documentation from Jira issues",
	Long: `helpdraft turns resolved Jira issues into draft help documentation.

It finds issues carrying an "Online Help" trigger comment, selects the
relevant developer comments with an AI classifier, retrieves supporting
pages from a vector index of the existing help site, and drafts a
review-ready comment in Jira wiki markup and ADF.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", buildVersion, buildCommit, buildDate)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without posting anything")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/helpdraft/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&promptPath, "system-prompt", "", "Path to a custom drafting system prompt (overrides prompts.system_path)")
}

func initConfig() {
	// Local .env first, the original deployment habit.
	_ = godotenv.Load()

	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "helpdraft")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("HELPDRAFT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "helpdraft")

	viper.SetDefault("state_dir", defaultConfigDir)
	viper.SetDefault("log.level", "info")

	viper.SetDefault("jira.base_url", "")
	viper.SetDefault("jira.email", "")
	viper.SetDefault("jira.api_token", "")
	viper.SetDefault("jira.user_agent", "")
	viper.SetDefault("jira.jql", "")
	viper.SetDefault("jira.reply_to_trigger", true)

	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	viper.SetDefault("anthropic.classifier_model", "claude-haiku-4-5-20251001")

	viper.SetDefault("embeddings.base_url", "")
	viper.SetDefault("embeddings.api_key", "")
	viper.SetDefault("embeddings.model", "text-embedding-3-large")

	viper.SetDefault("pinecone.api_key", "")
	viper.SetDefault("pinecone.index", "")
	viper.SetDefault("pinecone.namespace", "")
	viper.SetDefault("pinecone.host", "")

	viper.SetDefault("index.backend", "local")
	viper.SetDefault("index.db_path", filepath.Join(defaultConfigDir, "docs.db"))

	viper.SetDefault("pipeline.threshold", 0.5)
	viper.SetDefault("pipeline.top_k", 10)
	viper.SetDefault("prompts.system_path", "")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New(verbose, dryRun)

	level := logging.ParseLevel(viper.GetString("log.level"))
	if verbose {
		level = slog.LevelDebug
	}
	logger = logging.New(os.Stderr, level)

	// Tracker, index, and API clients are initialized lazily so config
	// and version commands run without credentials.
}

// getTracker returns the shared Jira client, initializing it on first call.
func getTracker() (tracker.Client, error) {
	if trackerClient != nil {
		return trackerClient, nil
	}

	baseURL := viper.GetString("jira.base_url")
	if baseURL == "" {
		return nil, fmt.Errorf("jira.base_url is not configured")
	}
	email := viper.GetString("jira.email")
	if email == "" {
		return nil, fmt.Errorf("jira.email is not configured")
	}
	token := viper.GetString("jira.api_token")
	if token == "" {
		token = os.Getenv("JIRA_API_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("jira.api_token is not configured")
	}
	userAgent := viper.GetString("jira.user_agent")
	if userAgent == "" {
		userAgent = "helpdraft/" + buildVersion
	}

	trackerClient = tracker.NewJiraClient(baseURL, email, token, userAgent)
	return trackerClient, nil
}

// anthropicKey resolves the Anthropic API key from config or environment.
func anthropicKey() string {
	key := viper.GetString("anthropic.api_key")
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	return key
}

// newDraftClient creates the drafting LLM client.
func newDraftClient() (*llm.Client, error) {
	key := anthropicKey()
	if key == "" {
		return nil, fmt.Errorf("anthropic.api_key is not configured")
	}
	return llm.NewClient(key, viper.GetString("anthropic.model")), nil
}

// newClassifier creates the relevance classifier with its own cheaper
// model pinned to a low temperature.
func newClassifier() (*pipeline.Classifier, error) {
	key := anthropicKey()
	if key == "" {
		return nil, fmt.Errorf("anthropic.api_key is not configured")
	}
	client := llm.NewClient(key, viper.GetString("anthropic.classifier_model")).
		WithTemperature(classifierTemperature)
	return pipeline.NewClassifier(client, viper.GetFloat64("pipeline.threshold"), logger), nil
}

// getEmbedder creates the embeddings client.
func getEmbedder() (embedding.Embedder, error) {
	key := viper.GetString("embeddings.api_key")
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("embeddings.api_key is not configured")
	}
	return embedding.NewClient(key, viper.GetString("embeddings.base_url"), viper.GetString("embeddings.model")), nil
}

// getIndex returns the shared vector index for the configured backend,
// initializing it on first call.
func getIndex(ctx context.Context) (vecindex.Index, error) {
	if docIndex != nil {
		return docIndex, nil
	}

	switch backend := viper.GetString("index.backend"); backend {
	case "local":
		idx, err := vecindex.OpenLocal(viper.GetString("index.db_path"))
		if err != nil {
			return nil, fmt.Errorf("open local index: %w", err)
		}
		docIndex = idx

	case "pinecone":
		apiKey := viper.GetString("pinecone.api_key")
		if apiKey == "" {
			apiKey = os.Getenv("PINECONE_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("pinecone.api_key is not configured")
		}
		host := viper.GetString("pinecone.host")
		if host == "" {
			name := viper.GetString("pinecone.index")
			if name == "" {
				return nil, fmt.Errorf("pinecone.index is not configured")
			}
			resolved, err := vecindex.ResolveHost(ctx, apiKey, name, "")
			if err != nil {
				return nil, fmt.Errorf("resolve pinecone host: %w", err)
			}
			host = resolved
		}
		docIndex = vecindex.NewPinecone(apiKey, host, viper.GetString("pinecone.namespace"))

	default:
		return nil, fmt.Errorf("unknown index backend %q (use local or pinecone)", backend)
	}
	return docIndex, nil
}

// getLocalIndex returns the index as a writable local store, for
// commands that upsert documents.
func getLocalIndex(ctx context.Context) (*vecindex.Local, error) {
	idx, err := getIndex(ctx)
	if err != nil {
		return nil, err
	}
	local, ok := idx.(*vecindex.Local)
	if !ok {
		return nil, fmt.Errorf("indexing requires index.backend=local")
	}
	return local, nil
}

// systemPromptPath resolves the custom prompt path from the flag or config.
func systemPromptPath() string {
	if promptPath != "" {
		return promptPath
	}
	return viper.GetString("prompts.system_path")
}

// buildPipeline assembles the full drafting pipeline from configuration.
func buildPipeline(ctx context.Context, post bool) (*pipeline.Pipeline, error) {
	tc, err := getTracker()
	if err != nil {
		return nil, err
	}
	classifier, err := newClassifier()
	if err != nil {
		return nil, err
	}
	embedder, err := getEmbedder()
	if err != nil {
		return nil, err
	}
	index, err := getIndex(ctx)
	if err != nil {
		return nil, err
	}
	drafter, err := newDraftClient()
	if err != nil {
		return nil, err
	}
	systemPrompt, err := prompts.LoadSystem(systemPromptPath())
	if err != nil {
		return nil, err
	}

	retriever := pipeline.NewRetriever(embedder, index, viper.GetInt("pipeline.top_k"))
	aud := audit.NewWriter(viper.GetString("state_dir"), audit.NewRunID())

	opts := pipeline.Options{
		SystemPrompt:   systemPrompt,
		Post:           post,
		ReplyToTrigger: viper.GetBool("jira.reply_to_trigger"),
	}
	return pipeline.New(tc, classifier, retriever, drafter, aud, opts, logger), nil
}
