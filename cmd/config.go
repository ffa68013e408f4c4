package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "helpdraft"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage helpdraft configuration.

Running bare 'helpdraft config' is the same as 'helpdraft config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
// Credentials are left commented out: they belong in the environment or
// a .env file, not in a config file that tends to get committed.
const configTemplate = `# helpdraft configuration
# See: helpdraft config show (for effective values and sources)

# State/data directory for audit artifacts (default: ~/.config/helpdraft)
# state_dir: {{ .StateDir }}

# Log level: debug, info, warn, error (default: info)
# log:
#   level: {{ .LogLevel }}

# Jira
jira:
  # Jira Cloud site, e.g. https://yourco.atlassian.net
  base_url: "{{ .JiraBaseURL }}"

  # Account email for basic auth
  email: "{{ .JiraEmail }}"

  # API token: set JIRA_API_TOKEN or HELPDRAFT_JIRA_API_TOKEN instead
  # api_token: ""

  # JQL for 'helpdraft run'. A {period} placeholder is replaced with an
  # updated-since window.
  jql: "{{ .JiraJQL }}"

  # Post drafts as replies to the trigger comment (default: true)
  reply_to_trigger: {{ .JiraReplyToTrigger }}

# Anthropic models
anthropic:
  # API key: set ANTHROPIC_API_KEY or HELPDRAFT_ANTHROPIC_API_KEY instead
  # api_key: ""

  # Drafting model
  model: "{{ .AnthropicModel }}"

  # Cheaper model for comment relevance scoring
  classifier_model: "{{ .AnthropicClassifierModel }}"

# Embeddings (OpenAI-compatible endpoint)
embeddings:
  # API key: set OPENAI_API_KEY or HELPDRAFT_EMBEDDINGS_API_KEY instead
  # api_key: ""

  # Override for non-OpenAI endpoints (default: https://api.openai.com/v1)
  # base_url: ""

  model: "{{ .EmbeddingsModel }}"

# Vector index backend: local (SQLite) or pinecone
index:
  backend: "{{ .IndexBackend }}"

  # SQLite path for the local backend
  db_path: {{ .IndexDBPath }}

# Pinecone (only used when index.backend is pinecone)
# pinecone:
#   # API key: set PINECONE_API_KEY or HELPDRAFT_PINECONE_API_KEY instead
#   index: ""
#   namespace: ""
#   host: ""

# Pipeline tuning
pipeline:
  # Comments scoring at or above this are kept (default: 0.5)
  threshold: {{ .PipelineThreshold }}

  # Reference documents retrieved per issue (default: 10)
  top_k: {{ .PipelineTopK }}

# Custom drafting system prompt file (default: built-in prompt)
# prompts:
#   system_path: ""
`

type configTemplateData struct {
	StateDir                 string
	LogLevel                 string
	JiraBaseURL              string
	JiraEmail                string
	JiraJQL                  string
	JiraReplyToTrigger       bool
	AnthropicModel           string
	AnthropicClassifierModel string
	EmbeddingsModel          string
	IndexBackend             string
	IndexDBPath              string
	PipelineThreshold        float64
	PipelineTopK             int
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:                 viper.GetString("state_dir"),
		LogLevel:                 viper.GetString("log.level"),
		JiraBaseURL:              viper.GetString("jira.base_url"),
		JiraEmail:                viper.GetString("jira.email"),
		JiraJQL:                  viper.GetString("jira.jql"),
		JiraReplyToTrigger:       viper.GetBool("jira.reply_to_trigger"),
		AnthropicModel:           viper.GetString("anthropic.model"),
		AnthropicClassifierModel: viper.GetString("anthropic.classifier_model"),
		EmbeddingsModel:          viper.GetString("embeddings.model"),
		IndexBackend:             viper.GetString("index.backend"),
		IndexDBPath:              viper.GetString("index.db_path"),
		PipelineThreshold:        viper.GetFloat64("pipeline.threshold"),
		PipelineTopK:             viper.GetInt("pipeline.top_k"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVar: "HELPDRAFT_STATE_DIR"},
	{Key: "log.level", EnvVar: "HELPDRAFT_LOG_LEVEL"},
	{Key: "jira.base_url", EnvVar: "HELPDRAFT_JIRA_BASE_URL"},
	{Key: "jira.email", EnvVar: "HELPDRAFT_JIRA_EMAIL"},
	{Key: "jira.api_token", EnvVar: "HELPDRAFT_JIRA_API_TOKEN", Secret: true},
	{Key: "jira.user_agent", EnvVar: "HELPDRAFT_JIRA_USER_AGENT"},
	{Key: "jira.jql", EnvVar: "HELPDRAFT_JIRA_JQL"},
	{Key: "jira.reply_to_trigger", EnvVar: "HELPDRAFT_JIRA_REPLY_TO_TRIGGER"},
	{Key: "anthropic.api_key", EnvVar: "HELPDRAFT_ANTHROPIC_API_KEY", Secret: true},
	{Key: "anthropic.model", EnvVar: "HELPDRAFT_ANTHROPIC_MODEL"},
	{Key: "anthropic.classifier_model", EnvVar: "HELPDRAFT_ANTHROPIC_CLASSIFIER_MODEL"},
	{Key: "embeddings.base_url", EnvVar: "HELPDRAFT_EMBEDDINGS_BASE_URL"},
	{Key: "embeddings.api_key", EnvVar: "HELPDRAFT_EMBEDDINGS_API_KEY", Secret: true},
	{Key: "embeddings.model", EnvVar: "HELPDRAFT_EMBEDDINGS_MODEL"},
	{Key: "pinecone.api_key", EnvVar: "HELPDRAFT_PINECONE_API_KEY", Secret: true},
	{Key: "pinecone.index", EnvVar: "HELPDRAFT_PINECONE_INDEX"},
	{Key: "pinecone.namespace", EnvVar: "HELPDRAFT_PINECONE_NAMESPACE"},
	{Key: "pinecone.host", EnvVar: "HELPDRAFT_PINECONE_HOST"},
	{Key: "index.backend", EnvVar: "HELPDRAFT_INDEX_BACKEND"},
	{Key: "index.db_path", EnvVar: "HELPDRAFT_INDEX_DB_PATH"},
	{Key: "pipeline.threshold", EnvVar: "HELPDRAFT_PIPELINE_THRESHOLD"},
	{Key: "pipeline.top_k", EnvVar: "HELPDRAFT_PIPELINE_TOP_K"},
	{Key: "prompts.system_path", EnvVar: "HELPDRAFT_PROMPTS_SYSTEM_PATH"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Secret {
			if viper.GetString(k.Key) != "" {
				val = "(set)"
			} else {
				val = "(unset)"
			}
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-28s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set — set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'helpdraft config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
