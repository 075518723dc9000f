package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/laserodometry/logging"
	"go.viam.com/laserodometry/odometry"
	"go.viam.com/laserodometry/spatialmath"
)

const laserOffsetKey = "laser_offset"

// Read reads a config from the given file. Environment variables referenced in the file are
// expanded before it is parsed.
func Read(
	ctx context.Context,
	filePath string,
	logger logging.Logger,
) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %q", filePath)
	}

	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
//
// Settings missing from the document keep their defaults. Unknown settings are an error.
func FromReader(
	ctx context.Context,
	originalPath string,
	r io.Reader,
	logger logging.Logger,
) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}

	cfg := &Config{
		ConfigFilePath: originalPath,
		Odometry:       odometry.DefaultConfig(),
		LaserOffset:    spatialmath.NewPlanarIdentity(),
	}
	if offset, ok := raw[laserOffsetKey]; ok {
		delete(raw, laserOffsetKey)
		if err := decode(offset, cfg.LaserOffset); err != nil {
			return nil, errors.Wrap(err, "failed to decode laser_offset")
		}
	}
	if err := decode(raw, cfg.Odometry); err != nil {
		return nil, errors.Wrap(err, "failed to decode odometry settings")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "failed to process Config")
	}
	logger.Debugw("read config", "path", originalPath, "laser_offset", cfg.LaserOffset.String())
	return cfg, nil
}

func decode(input, result interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      result,
		Squash:      true,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
