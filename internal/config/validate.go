package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidBackend indicates an unsupported store backend
	ErrInvalidBackend = errors.New("invalid store backend")

	// ErrEmptyURI indicates a missing neo4j connection URI
	ErrEmptyURI = errors.New("empty neo4j uri")

	// ErrEmptyPath indicates a missing sqlite database path
	ErrEmptyPath = errors.New("empty sqlite path")

	// ErrInvalidLimit indicates a non-positive file or row limit
	ErrInvalidLimit = errors.New("invalid limit")

	// ErrInvalidPattern indicates an ignore pattern that does not compile
	ErrInvalidPattern = errors.New("invalid ignore pattern")

	// ErrUnknownGrammar indicates a disabled grammar name that is not optional
	ErrUnknownGrammar = errors.New("unknown grammar")

	// ErrInvalidDepth indicates a negative clone depth
	ErrInvalidDepth = errors.New("invalid clone depth")
)

// optionalGrammars are the grammars that may be disabled. The javascript and
// python grammars are required.
var optionalGrammars = map[string]bool{
	"typescript": true,
	"tsx":        true,
}

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateStore(&cfg.Store); err != nil {
		errs = append(errs, err)
	}
	if err := validateAcquire(&cfg.Acquire); err != nil {
		errs = append(errs, err)
	}
	if err := validateDiscovery(&cfg.Discovery); err != nil {
		errs = append(errs, err)
	}
	if err := validateParsing(&cfg.Parsing); err != nil {
		errs = append(errs, err)
	}
	if cfg.Graph.RowLimit <= 0 {
		errs = append(errs, fmt.Errorf("%w: row_limit must be positive, got %d", ErrInvalidLimit, cfg.Graph.RowLimit))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateStore(cfg *StoreConfig) error {
	switch strings.ToLower(cfg.Backend) {
	case "neo4j":
		if strings.TrimSpace(cfg.Neo4j.URI) == "" {
			return fmt.Errorf("%w: store.neo4j.uri is required", ErrEmptyURI)
		}
	case "sqlite":
		if strings.TrimSpace(cfg.SQLite.Path) == "" {
			return fmt.Errorf("%w: store.sqlite.path is required", ErrEmptyPath)
		}
	default:
		return fmt.Errorf("%w: must be 'neo4j' or 'sqlite', got '%s'", ErrInvalidBackend, cfg.Backend)
	}
	return nil
}

func validateAcquire(cfg *AcquireConfig) error {
	if cfg.Depth < 0 {
		return fmt.Errorf("%w: depth cannot be negative, got %d", ErrInvalidDepth, cfg.Depth)
	}
	return nil
}

func validateDiscovery(cfg *DiscoveryConfig) error {
	var errs []error

	if cfg.MaxFiles <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_files must be positive, got %d", ErrInvalidLimit, cfg.MaxFiles))
	}

	for _, pattern := range cfg.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateParsing(cfg *ParsingConfig) error {
	for _, name := range cfg.DisabledGrammars {
		if !optionalGrammars[strings.ToLower(name)] {
			return fmt.Errorf("%w: %q cannot be disabled (optional: typescript, tsx)", ErrUnknownGrammar, name)
		}
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The sentinel errors stay reachable through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return &validationError{msg: "validation failed:\n  - " + strings.Join(msgs, "\n  - "), errs: errs}
}

type validationError struct {
	msg  string
	errs []error
}

func (e *validationError) Error() string   { return e.msg }
func (e *validationError) Unwrap() []error { return e.errs }
