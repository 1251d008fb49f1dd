// Package config abstracts all program configuration.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/asaskevich/govalidator"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"fb2html/config/encoder"
	"fb2html/config/encoder/hcl"
	jsonenc "fb2html/config/encoder/json"
	"fb2html/config/encoder/toml"
	"fb2html/config/encoder/yaml"
	"fb2html/converter"
	"fb2html/reporter"
)

// Logger configuration for single logger.
type Logger struct {
	Level       string `json:"level"`
	Destination string `json:"destination"`
	Mode        string `json:"mode"`
}

// Rule is user supplied tag rule. Absent "to" keeps source tag name, empty "to" drops the element.
type Rule struct {
	From    string  `json:"from"`
	To      *string `json:"to,omitempty"`
	Class   string  `json:"class,omitempty"`
	Handler string  `json:"handler,omitempty"`
}

// Converter configures FB2 to HTML translation.
type Converter struct {
	Fb2Prefix   string `json:"fb2_prefix"`
	ClassPrefix string `json:"class_prefix"`
	Rules       []Rule `json:"rules"`
}

// Output configures produced files.
type Output struct {
	WrapPage          bool     `json:"wrap_page"`
	Stylesheet        string   `json:"stylesheet"`
	FileNameTemplate  string   `json:"file_name_template"`
	FileNameTranslit  bool     `json:"file_name_transliterate"`
	ExtractImages     bool     `json:"extract_images"`
	ImagesDir         string   `json:"images_dir"`
	Bodies            []string `json:"bodies"`
	IncludeAnnotation bool     `json:"include_annotation"`
}

// names of special stylesheet values
const (
	StylesheetNone    = "none"
	StylesheetDefault = "default"
)

// Config keeps all configuration values.
type Config struct {
	// directory of the first configuration file, relative paths are resolved against it
	Path string
	// merged configuration document the way it was read, before unmarshaling
	raw map[string]interface{}

	ConsoleLogger Logger
	FileLogger    Logger
	Converter     Converter
	Output        Output
}

var defaultConfig = []byte(`{
  "converter": {
    "fb2_prefix": "",
    "class_prefix": "fb2-"
  },
  "output": {
    "wrap_page": true,
    "stylesheet": "default",
    "extract_images": true,
    "images_dir": "images",
    "include_annotation": true
  },
  "logger": {
    "console": {
      "level": "normal"
    },
    "file": {
      "destination": "conversion.log",
      "level": "none",
      "mode": "append"
    }
  }
}`)

// keys which hold lists of objects in any format, HCL single block lists are flattened everywhere else
var listKeys = map[string]bool{
	"rules": true,
}

// selectEncoder picks configuration format by file extension.
func selectEncoder(fname string) encoder.Encoder {
	switch strings.ToLower(filepath.Ext(fname)) {
	case ".yml", ".yaml":
		return yaml.NewEncoder()
	case ".toml":
		return toml.NewEncoder()
	case ".hcl":
		return hcl.NewEncoder()
	default:
		return jsonenc.NewEncoder()
	}
}

// decodeLayer produces JSON shaped map from configuration source.
func decodeLayer(data []byte, enc encoder.Encoder) (map[string]interface{}, error) {

	var m map[string]interface{}
	if err := enc.Decode(data, &m); err != nil {
		return nil, err
	}
	if enc.String() == "hcl" {
		m = flattenBlocks(m)
	}

	// normalize value types (toml and hcl produce typed slices and integers)
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var res map[string]interface{}
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func flattenBlocks(m map[string]interface{}) map[string]interface{} {
	for k, v := range m {
		if blocks, ok := v.([]map[string]interface{}); ok {
			if len(blocks) == 1 && !listKeys[k] {
				m[k] = flattenBlocks(blocks[0])
				continue
			}
			for i := range blocks {
				blocks[i] = flattenBlocks(blocks[i])
			}
			continue
		}
		if inner, ok := v.(map[string]interface{}); ok {
			m[k] = flattenBlocks(inner)
		}
	}
	return m
}

// BuildConfig loads configuration. Files are applied in order on top of built-in defaults, "-" reads JSON from STDIN.
func BuildConfig(fnames ...string) (*Config, error) {

	var err error
	// base configuration directory, always calculated from the path of the first configuration file
	var base string

	merged, err := decodeLayer(defaultConfig, jsonenc.NewEncoder())
	if err != nil {
		return nil, fmt.Errorf("unable to parse default configuration: %w", err)
	}

	var wasStdin bool
	for i, fname := range fnames {
		var (
			data []byte
			enc  encoder.Encoder
		)
		switch {
		case fname == "-":
			// NOTE: only one configuration could be read from STDIN, the rest should be ignored
			if wasStdin {
				continue
			}
			wasStdin = true
			if data, err = io.ReadAll(os.Stdin); err != nil {
				return nil, fmt.Errorf("unable to read configuration from stdin: %w", err)
			}
			enc = jsonenc.NewEncoder()
			if i == 0 {
				if base, err = os.Getwd(); err != nil {
					return nil, fmt.Errorf("unable to get working directory: %w", err)
				}
			}
		case len(fname) > 0:
			if data, err = os.ReadFile(fname); err != nil {
				return nil, fmt.Errorf("unable to read configuration file: %w", err)
			}
			enc = selectEncoder(fname)
			if i == 0 {
				if base, err = filepath.Abs(filepath.Dir(fname)); err != nil {
					return nil, fmt.Errorf("unable to get configuration directory: %w", err)
				}
			}
		default:
			continue
		}

		layer, err := decodeLayer(data, enc)
		if err != nil {
			return nil, fmt.Errorf("unable to parse configuration %s (%s): %w", fname, enc, err)
		}
		if err := mergo.Merge(&merged, layer, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("unable to merge configuration %s: %w", fname, err)
		}
	}

	conf, err := fromMap(merged)
	if err != nil {
		return nil, err
	}
	conf.Path = base
	return conf, nil
}

func fromMap(merged map[string]interface{}) (*Config, error) {

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("unable to process configuration: %w", err)
	}

	var doc struct {
		Logger struct {
			Console Logger `json:"console"`
			File    Logger `json:"file"`
		} `json:"logger"`
		Converter Converter `json:"converter"`
		Output    Output    `json:"output"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unable to read configuration: %w", err)
	}

	conf := &Config{
		raw:           merged,
		ConsoleLogger: doc.Logger.Console,
		FileLogger:    doc.Logger.File,
		Converter:     doc.Converter,
		Output:        doc.Output,
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}
	// some defaults
	if len(conf.Output.ImagesDir) == 0 {
		conf.Output.ImagesDir = "images"
	}
	return conf, nil
}

const (
	// XML name without namespace part
	reNCName = `^[A-Za-z_][A-Za-z0-9._-]*$`
	// XML name, possibly qualified
	reQName = `^([A-Za-z_][A-Za-z0-9._-]*:)?[A-Za-z_][A-Za-z0-9._-]*$`
	// characters allowed in css class prefix
	reClass = `^[A-Za-z0-9_-]*$`
)

func (conf *Config) validate() error {

	c := &conf.Converter
	if len(c.Fb2Prefix) > 0 && !govalidator.Matches(c.Fb2Prefix, reNCName) {
		return fmt.Errorf("invalid fb2 namespace prefix (%s)", c.Fb2Prefix)
	}
	if !govalidator.Matches(c.ClassPrefix, reClass) {
		return fmt.Errorf("invalid class prefix (%s)", c.ClassPrefix)
	}
	for i, r := range c.Rules {
		if !govalidator.Matches(r.From, reQName) {
			return fmt.Errorf("rule %d: invalid source tag (%s)", i+1, r.From)
		}
		if r.To != nil && len(*r.To) > 0 && !govalidator.Matches(*r.To, reQName) {
			return fmt.Errorf("rule %d: invalid target tag (%s)", i+1, *r.To)
		}
		if converter.ParseHandlerString(r.Handler) == converter.UnsupportedHandler {
			return fmt.Errorf("rule %d: unknown handler (%s)", i+1, r.Handler)
		}
	}
	if len(conf.Output.ImagesDir) > 0 && filepath.IsAbs(conf.Output.ImagesDir) {
		return fmt.Errorf("images directory must be relative to output (%s)", conf.Output.ImagesDir)
	}
	return nil
}

// TagRules converts user supplied rules for the converter.
func (conf *Config) TagRules() []converter.TagRule {

	rules := make([]converter.TagRule, 0, len(conf.Converter.Rules))
	for _, r := range conf.Converter.Rules {
		tr := converter.TagRule{
			From:    r.From,
			Class:   r.Class,
			Handler: converter.ParseHandlerString(r.Handler),
		}
		if r.To != nil {
			if len(*r.To) == 0 {
				tr.Drop = true
			} else {
				tr.To = *r.To
			}
		}
		rules = append(rules, tr)
	}
	return rules
}

// ResolvePath returns path relative to configuration directory.
func (conf *Config) ResolvePath(fname string) string {
	if len(fname) == 0 || filepath.IsAbs(fname) || len(conf.Path) == 0 {
		return fname
	}
	return filepath.Join(conf.Path, fname)
}

// GetBytes returns configuration the way it was read from various sources, before unmarshaling.
func (conf *Config) GetBytes() ([]byte, error) {
	b, err := json.Marshal(conf.raw)
	if err != nil {
		return nil, err
	}
	// do some pretty-printing
	var out bytes.Buffer
	err = json.Indent(&out, b, "", "  ")
	return out.Bytes(), err
}

// GetActualBytes returns actual configuration, including fields initialized by default.
func (conf *Config) GetActualBytes() ([]byte, error) {

	// For convenience create temporary configuration structure with actual values
	a := struct {
		B struct {
			Cl Logger `json:"console"`
			Fl Logger `json:"file"`
		} `json:"logger"`
		C Converter `json:"converter"`
		D Output    `json:"output"`
	}{}
	a.B.Cl = conf.ConsoleLogger
	a.B.Fl = conf.FileLogger
	a.C = conf.Converter
	a.D = conf.Output

	return json.MarshalIndent(a, "", "  ")
}

// PrepareLog returns our standard logger. It prepares zap logger for use by the program.
func (conf *Config) PrepareLog(rpt *reporter.Report) (*zap.Logger, error) {

	// Console - split stdout and stderr, handle colors and redirection

	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	if EnableColorOutput(os.Stdout) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	consoleEncoderLP := zapcore.NewConsoleEncoder(ec)

	ec = zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	if EnableColorOutput(os.Stderr) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	consoleEncoderHP := newEncoder(ec) // filter errorVerbose

	highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})

	var consoleCoreHP, consoleCoreLP zapcore.Core
	switch conf.ConsoleLogger.Level {
	case "normal":
		consoleCoreLP = zapcore.NewCore(consoleEncoderLP, zapcore.Lock(os.Stdout),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return zapcore.InfoLevel <= lvl && lvl < zapcore.ErrorLevel
			}))
		consoleCoreHP = zapcore.NewCore(consoleEncoderHP, zapcore.Lock(os.Stderr), highPriority)
	case "debug":
		consoleCoreLP = zapcore.NewCore(consoleEncoderLP, zapcore.Lock(os.Stdout),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return zapcore.DebugLevel <= lvl && lvl < zapcore.ErrorLevel
			}))
		consoleCoreHP = zapcore.NewCore(consoleEncoderHP, zapcore.Lock(os.Stderr), highPriority)
	default:
		consoleCoreLP = zapcore.NewNopCore()
		consoleCoreHP = zapcore.NewNopCore()
	}

	// File

	opener := func(fname, mode string) (f *os.File, err error) {
		flags := os.O_CREATE | os.O_WRONLY
		if mode == "append" {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		if f, err = os.OpenFile(fname, flags, 0644); err != nil {
			return nil, err
		}
		return f, nil
	}

	var (
		fileEncoder    zapcore.Encoder
		fileCore       zapcore.Core
		logLevel       zap.AtomicLevel
		logRequested   bool
		levelRequested = conf.FileLogger.Level
		modeRequested  = conf.FileLogger.Mode
	)

	if rpt != nil {
		// if report is requested always set maximum available logging level for file logger
		levelRequested = "debug"
		modeRequested = "overwrite"
	}

	switch levelRequested {
	case "debug":
		fileEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
		logRequested = true
	case "normal":
		fileEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
		logRequested = true
	}

	var newName string
	if logRequested {
		if f, err := opener(conf.FileLogger.Destination, modeRequested); err == nil {
			fileCore = zapcore.NewCore(fileEncoder, zapcore.Lock(f), logLevel)
			rpt.Store("file.log", f.Name())
		} else if f, err = os.CreateTemp("", "conversion.*.log"); err == nil {
			newName = f.Name()
			fileCore = zapcore.NewCore(fileEncoder, zapcore.Lock(f), logLevel)
			rpt.Store("file.log", newName)
		} else {
			return nil, fmt.Errorf("unable to access file log destination (%s): %w", conf.FileLogger.Destination, err)
		}
	} else {
		fileCore = zapcore.NewNopCore()
	}

	core := zap.New(zapcore.NewTee(consoleCoreHP, consoleCoreLP, fileCore), zap.AddCaller())
	if len(newName) != 0 {
		// log was redirected - we need to report this
		core.Warn("Log file was redirected to new location", zap.String("location", newName))
	}
	return core, nil
}

// When logging error to console - do not output verbose message.

type consoleEnc struct {
	zapcore.Encoder
}

func newEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return consoleEnc{zapcore.NewConsoleEncoder(cfg)}
}

func (c consoleEnc) Clone() zapcore.Encoder {
	return consoleEnc{c.Encoder.Clone()}
}

func (c consoleEnc) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	var newFields []zapcore.Field
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			e := f.Interface.(error)
			f.Interface = errors.New(e.Error())
		}
		newFields = append(newFields, f)
	}
	return c.Encoder.EncodeEntry(ent, newFields)
}
