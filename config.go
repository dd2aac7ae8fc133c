package votally

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/fatih/structs"
	"github.com/koding/multiconfig"
	"github.com/rs/zerolog"
)

// Config uses the multiconfig loader and validators to store configuration
// values required to run a poll. Configuration can be stored as a JSON, TOML,
// or YAML file in the current working directory as votally.json, in the
// user's home directory as .votally.json or in /etc/votally.json (with the
// extension of the file format of choice). Configuration can also be added
// from the environment using environment variables prefixed with $VOTALLY_
// and the all caps version of the configuration name.
type Config struct {
	Name     string   `required:"false" json:"name"`                              // name of the poll, hostname by default
	Addr     string   `default:":50001" validate:"addr" json:"addr"`              // address the poll server listens for voters on
	Method   string   `default:"plurality" json:"method"`                         // name of the voting method
	Choices  []string `required:"false" json:"choices"`                           // the candidates, in display and tie-break order
	Timeout  string   `required:"false" validate:"duration" json:"timeout"`       // deadline for a voter to send its ballot once balloting opens
	Uptime   string   `required:"false" validate:"duration" json:"uptime"`        // close balloting automatically after this long
	Control  string   `required:"false" validate:"addr" json:"control"`           // address of the operator control service, disabled if empty
	LogLevel string   `default:"info" validate:"loglevel" json:"log_level"`       // verbosity of logging, one of trace, debug, info, warn, error
	Metrics  string   `required:"false" validate:"path" json:"metrics,omitempty"` // location to append poll metrics to on shutdown
}

// Load the configuration from default values, then from a configuration file,
// and finally from the environment. Validate the configuration when loaded.
func (c *Config) Load() error {
	loaders := []multiconfig.Loader{}

	// Read default values defined via tag fields "default"
	loaders = append(loaders, &multiconfig.TagLoader{})

	// Find the config path and the appropriate file loader
	if path, err := c.GetPath(); err == nil {
		if strings.HasSuffix(path, "toml") {
			loaders = append(loaders, &multiconfig.TOMLLoader{Path: path})
		}

		if strings.HasSuffix(path, "json") {
			loaders = append(loaders, &multiconfig.JSONLoader{Path: path})
		}

		if strings.HasSuffix(path, "yml") || strings.HasSuffix(path, "yaml") {
			loaders = append(loaders, &multiconfig.YAMLLoader{Path: path})
		}
	}

	// Load the environment variable loader
	env := &multiconfig.EnvironmentLoader{Prefix: "VOTALLY", CamelCase: true}
	loaders = append(loaders, env)

	loader := multiconfig.MultiLoader(loaders...)
	if err := loader.Load(c); err != nil {
		return err
	}

	return c.Validate()
}

// Validate the loaded configuration using the multiconfig multi validator.
func (c *Config) Validate() error {
	validators := multiconfig.MultiValidator(
		&multiconfig.RequiredValidator{},
		&ComplexValidator{},
	)

	return validators.Validate(c)
}

// Update the configuration from another configuration struct
func (c *Config) Update(o *Config) error {
	if o == nil {
		return nil
	}

	conf := structs.New(c)

	// Then update the current config with values from the other config
	for _, field := range structs.Fields(o) {
		if !field.IsZero() {
			updateField := conf.Field(field.Name())
			if err := updateField.Set(field.Value()); err != nil {
				return fmt.Errorf("could not update %s: %s", field.Name(), err)
			}
		}
	}

	return c.Validate()
}

// GetName returns the name of the poll defined by the configuration or the
// hostname by default.
func (c *Config) GetName() (name string, err error) {
	if c.Name == "" {
		if name, err = os.Hostname(); err != nil {
			return "", errors.New("could not find unique name of localhost")
		}
		return name, nil
	}

	return c.Name, nil
}

// GetPath searches possible configuration paths returning the first path it
// finds; this path is used when loading the configuration from disk. An
// error is returned if no configuration file exists.
func (c *Config) GetPath() (string, error) {
	// Prepare PATH list
	paths := make([]string, 0, 3)

	// Look in CWD directory first
	if path, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(path, "votally"))
	}

	// Look in user's home directory next
	if user, err := user.Current(); err == nil {
		paths = append(paths, filepath.Join(user.HomeDir, ".votally"))
	}

	// Finally look in etc for the global configuration
	paths = append(paths, "/etc/votally")

	for _, path := range paths {
		for _, ext := range []string{".toml", ".json", ".yml", ".yaml"} {
			fpath := path + ext
			if _, err := os.Stat(fpath); !os.IsNotExist(err) {
				return fpath, nil
			}
		}
	}

	return "", errors.New("no configuration file found")
}

// GetTimeout parses the ballot timeout; zero means voters may take as long as
// they like to send their ballot.
func (c *Config) GetTimeout() (time.Duration, error) {
	return parseOptionalDuration(c.Timeout)
}

// GetUptime parses the balloting uptime; zero means balloting stays open until
// the operator closes it.
func (c *Config) GetUptime() (time.Duration, error) {
	return parseOptionalDuration(c.Uptime)
}

// GetLogLevel returns the zerolog level, info by default.
func (c *Config) GetLogLevel() zerolog.Level {
	if c.LogLevel == "" {
		return zerolog.InfoLevel
	}

	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

//===========================================================================
// Validators
//===========================================================================

// ComplexValidator validates complex types that multiconfig doesn't understand
type ComplexValidator struct {
	TagName string
}

// Validate implements the multiconfig.Validator interface.
func (v *ComplexValidator) Validate(s interface{}) error {
	if v.TagName == "" {
		v.TagName = "validate"
	}

	for _, field := range structs.Fields(s) {
		if err := v.processField("", field); err != nil {
			return err
		}
	}

	return nil
}

func (v *ComplexValidator) processField(fieldName string, field *structs.Field) error {
	fieldName += field.Name()
	switch field.Kind() {
	case reflect.Struct:
		fieldName += "."
		for _, f := range field.Fields() {
			if err := v.processField(fieldName, f); err != nil {
				return err
			}
		}
	default:
		if field.IsZero() {
			return nil
		}

		switch strings.ToLower(field.Tag(v.TagName)) {
		case "":
			return nil
		case "duration":
			return v.processDurationField(fieldName, field)
		case "path":
			return v.processPathField(fieldName, field)
		case "addr":
			return v.processAddrField(fieldName, field)
		case "loglevel":
			return v.processLogLevelField(fieldName, field)
		default:
			return fmt.Errorf("cannot validate type '%s'", field.Tag(v.TagName))
		}

	}

	return nil
}

func (v *ComplexValidator) processDurationField(fieldName string, field *structs.Field) error {
	d, err := time.ParseDuration(field.Value().(string))
	if err != nil {
		return fmt.Errorf("could not validate %s: %s", fieldName, err.Error())
	}

	if d < 0 {
		return fmt.Errorf("could not validate %s: negative duration", fieldName)
	}
	return nil
}

func (v *ComplexValidator) processPathField(fieldName string, field *structs.Field) error {
	dir := filepath.Dir(field.Value().(string))
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("could not validate %s: %s is not a directory", fieldName, dir)
	}
	return nil
}

func (v *ComplexValidator) processAddrField(fieldName string, field *structs.Field) error {
	if _, _, err := net.SplitHostPort(field.Value().(string)); err != nil {
		return fmt.Errorf("could not validate %s: %s", fieldName, err.Error())
	}
	return nil
}

func (v *ComplexValidator) processLogLevelField(fieldName string, field *structs.Field) error {
	if _, err := zerolog.ParseLevel(strings.ToLower(field.Value().(string))); err != nil {
		return fmt.Errorf("could not validate %s: %s", fieldName, err.Error())
	}
	return nil
}
