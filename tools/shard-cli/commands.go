package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Fantom-foundation/shardmap/go/backend/shard"
	"github.com/Fantom-foundation/shardmap/go/backend/shard/record"
	"github.com/Fantom-foundation/shardmap/go/common"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

var (
	verboseFlag = cli.BoolFlag{
		Name:  "verbose",
		Usage: "log record changes",
	}
	dirFlag = cli.StringFlag{
		Name:     "dir",
		Usage:    "the shard directory",
		Required: true,
	}
	signerFlag = cli.StringFlag{
		Name:  "signer",
		Usage: "hex encoded 32 byte address signing the change, defaults to the configured authority",
	}
	authorityFlag = cli.StringFlag{
		Name:  "authority",
		Usage: "hex encoded 32 byte address owning new shards, random if not set",
	}
	indexFlag = cli.UintFlag{
		Name:  "index",
		Usage: "the index of the shard in [0,255]",
	}
	maxItemsFlag = cli.UintFlag{
		Name:  "max-items",
		Usage: "the capacity of the shard",
		Value: 16,
	}
	keySizeFlag = cli.IntFlag{
		Name:  "key-size",
		Usage: "the encoded size of keys in bytes",
		Value: keySize,
	}
	valueSizeFlag = cli.IntFlag{
		Name:  "value-size",
		Usage: "the expected encoded size of values in bytes",
		Value: 32,
	}
)

var initCommand = cli.Command{
	Action: initDirectory,
	Name:   "init",
	Usage:  "creates a shard directory with a fresh namespace",
	Flags: []cli.Flag{
		&dirFlag,
		&authorityFlag,
		&valueSizeFlag,
		&maxItemsFlag,
	},
}

var createCommand = cli.Command{
	Action: withShardDirectory(createShard),
	Name:   "create",
	Usage:  "allocates the record of a new, empty shard",
	Flags: []cli.Flag{
		&dirFlag,
		&signerFlag,
		&indexFlag,
		&maxItemsFlag,
	},
}

var insertCommand = cli.Command{
	Action:    withShardDirectory(insertEntries),
	Name:      "insert",
	Usage:     "inserts or updates entries, either all of them or none",
	ArgsUsage: "<key>=<value> ...",
	Flags: []cli.Flag{
		&dirFlag,
		&signerFlag,
		&indexFlag,
	},
}

var getCommand = cli.Command{
	Action:    withShardDirectory(getEntries),
	Name:      "get",
	Usage:     "prints the values of keys",
	ArgsUsage: "<key> ...",
	Flags: []cli.Flag{
		&dirFlag,
		&indexFlag,
	},
}

var removeCommand = cli.Command{
	Action:    withShardDirectory(removeEntries),
	Name:      "remove",
	Usage:     "removes keys",
	ArgsUsage: "<key> ...",
	Flags: []cli.Flag{
		&dirFlag,
		&signerFlag,
		&indexFlag,
	},
}

var resizeCommand = cli.Command{
	Action: withShardDirectory(resizeShard),
	Name:   "resize",
	Usage:  "changes the capacity of a shard and the size of its record",
	Flags: []cli.Flag{
		&dirFlag,
		&signerFlag,
		&indexFlag,
		&maxItemsFlag,
	},
}

var statsCommand = cli.Command{
	Action: withShardDirectory(printStats),
	Name:   "stats",
	Usage:  "prints capacity statistics of a shard",
	Flags: []cli.Flag{
		&dirFlag,
		&indexFlag,
	},
}

var listCommand = cli.Command{
	Action: withShardDirectory(listEntries),
	Name:   "list",
	Usage:  "prints all entries of a shard in insertion order",
	Flags: []cli.Flag{
		&dirFlag,
		&indexFlag,
	},
}

var deleteCommand = cli.Command{
	Action: withShardDirectory(deleteShard),
	Name:   "delete",
	Usage:  "deletes the record of a shard",
	Flags: []cli.Flag{
		&dirFlag,
		&signerFlag,
		&indexFlag,
	},
}

var estimateCommand = cli.Command{
	Action: estimateSize,
	Name:   "estimate",
	Usage:  "prints the record size needed for a shard",
	Flags: []cli.Flag{
		&keySizeFlag,
		&valueSizeFlag,
		&maxItemsFlag,
	},
}

func initDirectory(ctx *cli.Context) error {
	dir := ctx.String(dirFlag.Name)
	if _, err := os.Stat(filepath.Join(dir, configFileName)); err == nil {
		return fmt.Errorf("%s is already a shard directory", dir)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	var authority common.Address
	if ctx.IsSet(authorityFlag.Name) {
		var err error
		if authority, err = parseAddress(ctx.String(authorityFlag.Name)); err != nil {
			return err
		}
	} else {
		id := uuid.New()
		authority = common.Address(common.Keccak256([]byte("authority"), id[:]))
	}

	capacity, err := maxItems(ctx, uint16(maxItemsFlag.Value))
	if err != nil {
		return err
	}
	valueSize := ctx.Int(valueSizeFlag.Name)
	if valueSize < 0 {
		return fmt.Errorf("invalid value size %d", valueSize)
	}
	cfg := newConfig(authority, valueSize, capacity)
	if err := writeConfig(dir, cfg); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "namespace: %s\nauthority: %s\n", cfg.Namespace, cfg.Authority)
	return nil
}

func createShard(ctx *cli.Context, dir *shardDirectory) error {
	index, err := shardIndex(ctx)
	if err != nil {
		return err
	}
	capacity, err := maxItems(ctx, dir.config.DefaultMaxItems)
	if err != nil {
		return err
	}
	if _, err := dir.binding.Create(dir.signer, index, capacity); err != nil {
		return err
	}
	addr, err := dir.binding.Address(index)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "shard %d: address %v, capacity %d, record size %d\n",
		index, addr, capacity, dir.binding.RecordSize(capacity))
	return nil
}

func parseKey(s string) (uint64, error) {
	key, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid key %q: %w", s, err)
	}
	return key, nil
}

func parseKeys(args cli.Args) ([]uint64, error) {
	keys := make([]uint64, 0, args.Len())
	for _, arg := range args.Slice() {
		key, err := parseKey(arg)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func parseEntries(args cli.Args) ([]common.Entry[uint64, string], error) {
	entries := make([]common.Entry[uint64, string], 0, args.Len())
	for _, arg := range args.Slice() {
		k, v, found := strings.Cut(arg, "=")
		if !found {
			return nil, fmt.Errorf("invalid entry %q, expected <key>=<value>", arg)
		}
		key, err := parseKey(k)
		if err != nil {
			return nil, err
		}
		entries = append(entries, common.Entry[uint64, string]{Key: key, Val: v})
	}
	return entries, nil
}

func insertEntries(ctx *cli.Context, dir *shardDirectory) error {
	index, err := shardIndex(ctx)
	if err != nil {
		return err
	}
	entries, err := parseEntries(ctx.Args())
	if err != nil {
		return err
	}
	var inserted int
	err = dir.binding.Update(index, dir.signer, func(s *shard.MappingShard[uint64, string]) error {
		n, err := s.TryInsertBatch(entries)
		inserted = n
		if errors.Is(err, shard.ErrShardFull) {
			return fmt.Errorf("%w: %d of %d new keys fit", err, s.SpaceForNewItems(keysOf(entries)), len(entries))
		}
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "inserted %d entries\n", inserted)
	return nil
}

func keysOf(entries []common.Entry[uint64, string]) []uint64 {
	keys := make([]uint64, len(entries))
	for i, entry := range entries {
		keys[i] = entry.Key
	}
	return keys
}

func getEntries(ctx *cli.Context, dir *shardDirectory) error {
	index, err := shardIndex(ctx)
	if err != nil {
		return err
	}
	keys, err := parseKeys(ctx.Args())
	if err != nil {
		return err
	}
	account, err := dir.binding.Load(index)
	if err != nil {
		return err
	}
	var missing []error
	for i, res := range account.Shard.GetBatch(keys) {
		if !res.Exists {
			missing = append(missing, fmt.Errorf("%w: %d", shard.ErrKeyNotFound, keys[i]))
			continue
		}
		fmt.Fprintf(ctx.App.Writer, "%d: %s\n", keys[i], res.Val)
	}
	return errors.Join(missing...)
}

func removeEntries(ctx *cli.Context, dir *shardDirectory) error {
	index, err := shardIndex(ctx)
	if err != nil {
		return err
	}
	keys, err := parseKeys(ctx.Args())
	if err != nil {
		return err
	}
	var failed []error
	err = dir.binding.Update(index, dir.signer, func(s *shard.MappingShard[uint64, string]) error {
		for i, err := range s.RemoveBatch(keys) {
			if err != nil {
				failed = append(failed, fmt.Errorf("%w: %d", err, keys[i]))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "removed %d entries\n", len(keys)-len(failed))
	return errors.Join(failed...)
}

func resizeShard(ctx *cli.Context, dir *shardDirectory) error {
	index, err := shardIndex(ctx)
	if err != nil {
		return err
	}
	capacity, err := maxItems(ctx, dir.config.DefaultMaxItems)
	if err != nil {
		return err
	}
	account, err := dir.binding.Resize(index, dir.signer, capacity)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "%v\n", account.Shard.CapacityStats())
	return nil
}

func printStats(ctx *cli.Context, dir *shardDirectory) error {
	index, err := shardIndex(ctx)
	if err != nil {
		return err
	}
	account, err := dir.binding.Load(index)
	if err != nil {
		return err
	}
	addr, err := dir.binding.Address(index)
	if err != nil {
		return err
	}
	size, err := dir.records.Size(addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "shard %d at %v\n", index, addr)
	fmt.Fprintf(ctx.App.Writer, "authority: %v\n", account.Authority)
	fmt.Fprintf(ctx.App.Writer, "record size: %d\n", size)
	fmt.Fprintf(ctx.App.Writer, "%v\n", account.Shard.CapacityStats())
	return nil
}

func listEntries(ctx *cli.Context, dir *shardDirectory) error {
	index, err := shardIndex(ctx)
	if err != nil {
		return err
	}
	account, err := dir.binding.Load(index)
	if err != nil {
		return err
	}
	for _, entry := range account.Shard.Entries() {
		fmt.Fprintf(ctx.App.Writer, "%d: %s\n", entry.Key, entry.Val)
	}
	return nil
}

func deleteShard(ctx *cli.Context, dir *shardDirectory) error {
	index, err := shardIndex(ctx)
	if err != nil {
		return err
	}
	return dir.binding.Delete(index, dir.signer)
}

func estimateSize(ctx *cli.Context) error {
	capacity, err := maxItems(ctx, uint16(maxItemsFlag.Value))
	if err != nil {
		return err
	}
	keys := ctx.Int(keySizeFlag.Name)
	values := ctx.Int(valueSizeFlag.Name)
	fmt.Fprintf(ctx.App.Writer, "shard record: %d bytes\n", record.EstimateAccountSize(keys, values, int(capacity)))
	fmt.Fprintf(ctx.App.Writer, "owned shard record: %d bytes\n", record.EstimateOwnedAccountSize(keys, values, int(capacity)))
	return nil
}
