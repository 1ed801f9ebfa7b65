package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/Fantom-foundation/shardmap/go/backend/shard/host"
	"github.com/Fantom-foundation/shardmap/go/backend/shard/host/ldb"
	"github.com/Fantom-foundation/shardmap/go/backend/shard/record"
	"github.com/Fantom-foundation/shardmap/go/common"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// keySize is the encoded size of the uint64 keys used by the tool.
const keySize = 8

// shardDirectory is an opened shard directory: the configuration plus the
// LevelDB holding the shard records.
type shardDirectory struct {
	config  config
	signer  common.Address
	records *ldb.RecordStore
	binding *host.Binding[uint64, string]
	log     *zap.Logger
}

func newLogger(ctx *cli.Context) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if ctx.Bool(verboseFlag.Name) {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func newCodec() (record.Codec[uint64, string], error) {
	values, err := record.NewCBORCodec[string]()
	if err != nil {
		return record.Codec[uint64, string]{}, err
	}
	return record.NewCodec[uint64, string](record.Fixed[uint64](common.Uint64Serializer{}), values), nil
}

// openShardDirectory opens the directory named by the --dir flag. The signer
// is taken from the --signer flag and defaults to the configured authority.
func openShardDirectory(ctx *cli.Context) (*shardDirectory, error) {
	dir := ctx.String(dirFlag.Name)
	cfg, err := readConfig(dir)
	if err != nil {
		return nil, err
	}
	namespace, err := cfg.namespace()
	if err != nil {
		return nil, err
	}
	signer, err := cfg.authority()
	if err != nil {
		return nil, err
	}
	if ctx.IsSet(signerFlag.Name) {
		if signer, err = parseAddress(ctx.String(signerFlag.Name)); err != nil {
			return nil, err
		}
	}
	log, err := newLogger(ctx)
	if err != nil {
		return nil, err
	}
	codec, err := newCodec()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, recordsDirName)
	log.Debug("opening record store", zap.String("path", path))
	records, err := ldb.OpenRecordStore(path, true)
	if err != nil {
		return nil, err
	}
	binding, err := host.NewBinding(host.Config{
		Namespace: namespace,
		KeySize:   keySize,
		ValueSize: cfg.ValueSize,
		Logger:    log,
	}, codec, records)
	if err != nil {
		return nil, errors.Join(err, records.Close())
	}
	return &shardDirectory{
		config:  cfg,
		signer:  signer,
		records: records,
		binding: binding,
		log:     log,
	}, nil
}

func (d *shardDirectory) Close() error {
	d.log.Debug("closing record store")
	// Sync errors on stderr are not of interest to the caller.
	_ = d.log.Sync()
	return d.records.Close()
}

// withShardDirectory runs the action on the opened shard directory and
// closes it afterwards.
func withShardDirectory(action func(*cli.Context, *shardDirectory) error) cli.ActionFunc {
	return func(ctx *cli.Context) (err error) {
		dir, err := openShardDirectory(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := dir.Close(); closeErr != nil {
				err = errors.Join(err, closeErr)
			}
		}()
		return action(ctx, dir)
	}
}

func shardIndex(ctx *cli.Context) (uint8, error) {
	index := ctx.Uint(indexFlag.Name)
	if index > 255 {
		return 0, fmt.Errorf("invalid shard index %d, must be in [0,255]", index)
	}
	return uint8(index), nil
}

func maxItems(ctx *cli.Context, fallback uint16) (uint16, error) {
	if !ctx.IsSet(maxItemsFlag.Name) {
		return fallback, nil
	}
	res := ctx.Uint(maxItemsFlag.Name)
	if res > 0xffff {
		return 0, fmt.Errorf("invalid capacity %d, must be in [0,65535]", res)
	}
	return uint16(res), nil
}
