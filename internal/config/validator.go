package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/coderisk/codegraph/internal/errors"
)

// ValidationContext specifies what configuration is required.
type ValidationContext string

const (
	// ValidationContextRun - `run` requires Neo4j connectivity.
	ValidationContextRun ValidationContext = "run"
	// ValidationContextClear - `clear` requires Neo4j connectivity.
	ValidationContextClear ValidationContext = "clear"
	// ValidationContextAll - validate all configuration.
	ValidationContextAll ValidationContext = "all"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result.
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result.
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors.
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message.
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nwarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	return sb.String()
}

// Validate validates configuration for the given context with auto-detected mode.
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	mode := DetectMode()
	return c.ValidateWithMode(ctx, mode)
}

// ValidateWithMode validates configuration for the given context and deployment mode.
func (c *Config) ValidateWithMode(ctx ValidationContext, mode DeploymentMode) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch ctx {
	case ValidationContextRun, ValidationContextClear:
		c.validateNeo4j(result, true, mode)
		c.validatePipeline(result)
	case ValidationContextAll:
		c.validateNeo4j(result, true, mode)
		c.validatePipeline(result)
		c.validateResolution(result)
	}

	return result
}

func (c *Config) validateNeo4j(result *ValidationResult, required bool, mode DeploymentMode) {
	if c.Neo4j.URI == "" {
		if required {
			result.AddError("NEO4J_URI is required but not set")
		} else {
			result.AddWarning("NEO4J_URI is not set")
		}
	} else if _, err := url.Parse(c.Neo4j.URI); err != nil {
		result.AddError("NEO4J_URI is invalid: %v", err)
	} else if strings.Contains(c.Neo4j.URI, "localhost") && mode.RequiresSecureCredentials() {
		result.AddError("NEO4J_URI uses localhost. In %s mode (%s), a remote database URI is required.", mode, mode.Description())
	}

	if c.Neo4j.User == "" {
		if required {
			result.AddError("NEO4J_USER is required but not set")
		} else {
			result.AddWarning("NEO4J_USER is not set")
		}
	}

	if c.Neo4j.Password == "" {
		if required {
			result.AddError("NEO4J_PASSWORD is required but not set. Set it via environment variable or .env file.")
		} else {
			result.AddWarning("NEO4J_PASSWORD is not set")
		}
	} else if mode.RequiresSecureCredentials() {
		insecure := []string{"password", "neo4j", "CHANGE_THIS_PASSWORD"}
		for _, p := range insecure {
			if c.Neo4j.Password == p {
				result.AddError("NEO4J_PASSWORD is set to an insecure default. This is not allowed in %s mode.", mode)
			}
		}
	}

	if c.Neo4j.Database == "" {
		result.AddWarning("NEO4J_DATABASE is not set, will use 'neo4j' as default")
	}
}

func (c *Config) validatePipeline(result *ValidationResult) {
	if c.Pipeline.ParserWorkers <= 0 {
		result.AddWarning("pipeline.parser_workers must be positive, will use default (4)")
	}
	if c.Pipeline.WriteQueueDepth <= 0 {
		result.AddWarning("pipeline.write_queue_depth must be positive, will use default (64)")
	}
	if c.Pipeline.MaxFileSize <= 0 {
		result.AddWarning("pipeline.max_file_size must be positive, will use default (1 MiB)")
	}
}

func (c *Config) validateResolution(result *ValidationResult) {
	switch c.Resolution.Strategy {
	case "join", "hashmap", "sharded":
	default:
		result.AddError("resolution.strategy must be one of join, hashmap, sharded; got %q", c.Resolution.Strategy)
	}
	if c.Resolution.Strategy == "sharded" && c.Resolution.Shards <= 0 {
		result.AddError("resolution.shards must be positive when strategy is sharded")
	}
}

// RequireNeo4j checks if Neo4j configuration is valid and returns error if not.
func (c *Config) RequireNeo4j() error {
	result := &ValidationResult{Valid: true}
	mode := DetectMode()
	c.validateNeo4j(result, true, mode)

	if result.HasErrors() {
		return errors.ConfigError(result.Error())
	}

	return nil
}
