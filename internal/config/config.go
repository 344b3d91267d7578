package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/claimlab/annotation-backend/internal/logger"
	"github.com/claimlab/annotation-backend/internal/utils"
)

// Storage backend selection. Chosen once at startup; a session never
// switches backends mid-flight.
const (
	StorageLocal    = "local"
	StorageDatabase = "database"
	StorageBucket   = "bucket"
)

// ConfigurationError is fatal to the operation that needs the setting.
// Remediation tells the operator what to fix; there is no retry.
type ConfigurationError struct {
	Setting     string
	Remediation string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s (%s)", e.Setting, e.Remediation)
}

// Assignment maps a group of annotators to their dataset and image files.
type Assignment struct {
	Annotators  []string `yaml:"annotators"`
	DatasetFile string   `yaml:"dataset_file"`
	ImagesDir   string   `yaml:"images_dir"`
}

type assignmentsFile struct {
	Assignments []Assignment `yaml:"assignments"`
}

type Config struct {
	Port    string
	LogMode string

	StorageType string
	DataDir     string

	// Dataset
	DatasetLimit int
	ShuffleSeed  int64
	Assignments  []Assignment

	GuidelinesFile string

	// Database variant
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresName     string
	SQLitePath       string

	// Bucket variant
	BucketName      string
	BucketFolder    string
	CredentialsFile string

	Annotators []string
}

// defaultAssignments reproduces the fixed annotator-to-dataset split used
// by the pilot study: the first four annotators get the Nepali set, the
// remaining three the Telugu set.
func defaultAssignments() []Assignment {
	return []Assignment{
		{
			Annotators:  []string{"annotator_01", "annotator_02", "annotator_03", "annotator_04"},
			DatasetFile: "pilot_data_nepali/pilot_data.json",
			ImagesDir:   "pilot_data_nepali/images",
		},
		{
			Annotators:  []string{"annotator_05", "annotator_06", "annotator_07"},
			DatasetFile: "pilot_data_telugu/pilot_data.json",
			ImagesDir:   "pilot_data_telugu/images",
		},
	}
}

func defaultAnnotators() []string {
	ids := make([]string, 0, 7)
	for i := 1; i <= 7; i++ {
		ids = append(ids, fmt.Sprintf("annotator_%02d", i))
	}
	return ids
}

// Load builds the configuration from environment variables and the
// optional assignments file.
func Load(log *logger.Logger) (*Config, error) {
	cfg := &Config{
		Port:             utils.GetEnv("PORT", "8080", log),
		LogMode:          utils.GetEnv("LOG_MODE", "development", log),
		StorageType:      utils.GetEnv("STORAGE_TYPE", StorageLocal, log),
		DataDir:          utils.GetEnv("DATA_DIR", "annotation_data", log),
		DatasetLimit:     utils.GetEnvAsInt("DATASET_LIMIT", 0, log),
		ShuffleSeed:      utils.GetEnvAsInt64("SHUFFLE_SEED", 42, log),
		GuidelinesFile:   utils.GetEnv("GUIDELINES_FILE", "guidelines.md", log),
		PostgresHost:     utils.GetEnv("POSTGRES_HOST", "", log),
		PostgresPort:     utils.GetEnv("POSTGRES_PORT", "5432", log),
		PostgresUser:     utils.GetEnv("POSTGRES_USER", "postgres", log),
		PostgresPassword: utils.GetEnv("POSTGRES_PASSWORD", "", log),
		PostgresName:     utils.GetEnv("POSTGRES_NAME", "claim_annotation", log),
		SQLitePath:       utils.GetEnv("SQLITE_PATH", "", log),
		BucketName:       utils.GetEnv("GCS_BUCKET_NAME", "", log),
		BucketFolder:     utils.GetEnv("GCS_ANNOTATIONS_FOLDER", "annotations", log),
		CredentialsFile:  utils.GetEnv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "", log),
		Annotators:       defaultAnnotators(),
		Assignments:      defaultAssignments(),
	}

	if path := utils.GetEnv("ASSIGNMENTS_FILE", "", log); path != "" {
		assignments, err := loadAssignments(path)
		if err != nil {
			return nil, err
		}
		cfg.Assignments = assignments
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadAssignments(path string) ([]Assignment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{
			Setting:     "ASSIGNMENTS_FILE",
			Remediation: fmt.Sprintf("could not read %s: %v", path, err),
		}
	}
	var f assignmentsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &ConfigurationError{
			Setting:     "ASSIGNMENTS_FILE",
			Remediation: fmt.Sprintf("invalid YAML in %s: %v", path, err),
		}
	}
	if len(f.Assignments) == 0 {
		return nil, &ConfigurationError{
			Setting:     "ASSIGNMENTS_FILE",
			Remediation: "file must declare at least one entry under `assignments:`",
		}
	}
	return f.Assignments, nil
}

func (c *Config) validate() error {
	switch c.StorageType {
	case StorageLocal:
	case StorageDatabase:
		if c.PostgresHost == "" && c.SQLitePath == "" {
			return &ConfigurationError{
				Setting:     "STORAGE_TYPE=database",
				Remediation: "set POSTGRES_HOST (plus POSTGRES_USER/POSTGRES_PASSWORD/POSTGRES_NAME) or SQLITE_PATH",
			}
		}
	case StorageBucket:
		if c.BucketName == "" {
			return &ConfigurationError{
				Setting:     "STORAGE_TYPE=bucket",
				Remediation: "set GCS_BUCKET_NAME (and GOOGLE_APPLICATION_CREDENTIALS_JSON unless ADC is available)",
			}
		}
	default:
		return &ConfigurationError{
			Setting:     "STORAGE_TYPE",
			Remediation: fmt.Sprintf("%q is not one of local, database, bucket", c.StorageType),
		}
	}
	return nil
}

// IsValidAnnotator reports whether the id is on the fixed allow-list.
func (c *Config) IsValidAnnotator(annotatorID string) bool {
	for _, id := range c.Annotators {
		if id == annotatorID {
			return true
		}
	}
	return false
}

// AssignmentFor returns the dataset assignment for an annotator.
func (c *Config) AssignmentFor(annotatorID string) (Assignment, error) {
	for _, a := range c.Assignments {
		for _, id := range a.Annotators {
			if id == annotatorID {
				return a, nil
			}
		}
	}
	return Assignment{}, &ConfigurationError{
		Setting:     "assignments",
		Remediation: fmt.Sprintf("annotator %q has no dataset assignment", annotatorID),
	}
}

// PostgresDSN builds the database DSN from the individual settings.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresName)
}
