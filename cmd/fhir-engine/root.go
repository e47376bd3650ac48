package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fhir-engine/codec"
	"fhir-engine/config"
	"fhir-engine/internal/logging"
	"fhir-engine/model"
	"fhir-engine/r4"
	"fhir-engine/schema"
	"fhir-engine/validation"
)

// formatAuto selects the wire format from the document content.
const formatAuto = "auto"

// app holds what every command needs once the configuration is loaded.
type app struct {
	configFile string

	cfg *config.Config
	log logrus.FieldLogger
	reg *schema.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "fhir-engine",
		Short:         "Validate and convert FHIR R4 documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Path to a YAML configuration file")

	cmd.AddCommand(
		newValidateCmd(a),
		newConvertCmd(a),
		newDescribeCmd(a),
	)

	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetLevel(cfg.Log.Level)

	a.cfg = cfg
	a.log = logging.Logger(logger, cfg.Log.File, "cli")

	reg, err := r4.NewRegistry(a.log, cfg.Definitions.Extra...)
	if err != nil {
		return errors.Wrap(err, "load definitions")
	}

	a.reg = reg

	return nil
}

func (a *app) codecOptions() []codec.Option {
	return []codec.Option{
		codec.WithLogger(a.log),
		codec.WithLimits(codec.Limits{
			MaxDepth: a.cfg.Limits.MaxDepth,
			MaxItems: a.cfg.Limits.MaxItems,
			MaxBytes: a.cfg.Limits.MaxBytes,
		}),
	}
}

// codecFor returns the codec for format, detecting it from data for "auto".
func (a *app) codecFor(format string, data []byte, extra ...codec.Option) (codec.Codec, error) {
	if format == "" || format == formatAuto {
		if format = codec.Detect(data); format == "" {
			return nil, errors.New("can not detect the document format, set it with --from")
		}
	}

	return codec.ForFormat(format, a.reg, append(a.codecOptions(), extra...)...)
}

// decode reads data as typeName, or as the resource the document names when
// typeName is empty. A codec.DecodeErrors error may come with an instance.
func (a *app) decode(data []byte, format, typeName string) (*model.Instance, error) {
	c, err := a.codecFor(format, data)
	if err != nil {
		return nil, err
	}

	if typeName == "" {
		return c.DecodeResource(data)
	}

	rt, err := a.reg.Resolve(typeName)
	if err != nil {
		return nil, errors.Wrap(err, "resolve type")
	}

	return c.Decode(data, rt)
}

func (a *app) validator() (*validation.Validator, error) {
	opts := []validation.Option{validation.WithLogger(a.log)}

	if file := a.cfg.Validation.TerminologyFile; file != "" {
		static, err := validation.LoadStaticTerminology(file)
		if err != nil {
			return nil, errors.Wrap(err, "load terminology")
		}

		cached, err := validation.NewCachedTerminology(static, a.cfg.Validation.TerminologyCacheSize)
		if err != nil {
			return nil, err
		}

		opts = append(opts, validation.WithTerminology(cached))
	}

	return validation.New(opts...), nil
}

// readInput reads the named file, or standard input for "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return data, errors.Wrap(err, "read standard input")
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}

	return data, nil
}
