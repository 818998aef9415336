package compressio

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

var featureTypes = [...]Type{
	FeatureLZ4:    TypeLZ4,
	FeatureGzip:   TypeGzip,
	FeatureZstd:   TypeZstd,
	FeatureSnappy: TypeSnappy,
	FeatureBrotli: TypeBrotli,
}

// compressionFeatures has every compression feature bit set.
const compressionFeatures uint64 = 1<<len(featureTypes) - 1

// CheckSetHasCompressedData makes sure data can be written with opt: the
// codec's pools exist and its feature bit is persisted in the superblock.
// Once it returns nil for an option, later calls for it never block.
func (c *FS) CheckSetHasCompressedData(opt Opt) error {
	f, ok := opt.Feature()
	if !ok {
		return nil
	}
	return c.checkSetFeatures(f.Mask())
}

func (c *FS) checkSetFeatures(mask uint64) error {
	if c.features.Load()&mask == mask {
		return nil
	}

	c.sbLock.Lock()
	defer c.sbLock.Unlock()
	c.incrementStat(&c.stats.SlowPathChecks)

	have := c.features.Load()
	if have&mask == mask {
		return nil
	}
	if c.closed {
		return ErrClosed
	}

	if err := c.init(have | mask); err != nil {
		c.log.Error("compression feature provisioning failed", "features", fmt.Sprintf("%#x", mask), "err", err)
		return err
	}

	old := c.sb.Features()
	c.sb.SetFeatures(old | mask)
	if err := c.sb.WriteSuper(); err != nil {
		c.sb.SetFeatures(old)
		c.log.Error("error writing superblock", "features", fmt.Sprintf("%#x", old|mask), "err", err)
		return fmt.Errorf("%w: writing superblock: %v", ErrIO, err)
	}

	c.features.Store(have | old | mask)
	c.log.Debug("compression feature set", "features", fmt.Sprintf("%#x", have|old|mask))
	return nil
}

// init provisions every pool the given feature word needs and has not been
// created yet. It runs under sbLock. Pools created before a failure are
// kept; nothing is published to the feature word here.
func (c *FS) init(features uint64) error {
	if c.closed {
		return ErrClosed
	}
	if features&compressionFeatures == 0 {
		return nil
	}

	c.log.Debug("compress init", "features", fmt.Sprintf("%#x", features))

	order := pageOrder(c.maxExtentBytes)
	for rw := range c.bounce {
		if c.bounce[rw].Load() != nil {
			continue
		}
		size := int64(c.config.BounceBuffers) * int64(PageSize<<order)
		if err := c.reserve(size, fmt.Sprintf("%s bounce pool", Direction(rw))); err != nil {
			return err
		}
		p, err := NewPagePool(c.config.BounceBuffers, order)
		if err != nil {
			c.reserved -= size
			return err
		}
		c.bounce[rw].Store(p)
		c.incrementStat(&c.stats.PoolInits)
	}

	sizes := workspaceSizes(c.maxExtentBytes)
	n := c.config.WorkspacesPerCodec
	for f, typ := range featureTypes {
		if features&Feature(f).Mask() == 0 || c.compressWorkspace[typ].Load() != nil {
			continue
		}
		size := int64(n) * int64(sizes[typ].compress)
		if err := c.reserve(size, fmt.Sprintf("%s workspaces", typ)); err != nil {
			return err
		}
		p, err := newPool(n, func() (*workspace, error) {
			return c.newWorkspace(typ)
		}, releaseWorkspace)
		if err != nil {
			c.reserved -= size
			return err
		}
		c.compressWorkspace[typ].Store(p)
		c.incrementStat(&c.stats.PoolInits)
	}

	if c.decompressWorkspace.Load() == nil {
		size := int64(n) * int64(decompressWorkspaceSize(c.maxExtentBytes))
		if err := c.reserve(size, "decompress workspaces"); err != nil {
			return err
		}
		p, err := newPool(n, c.newDecompressWorkspace, releaseDecompressWorkspace)
		if err != nil {
			c.reserved -= size
			return err
		}
		c.decompressWorkspace.Store(p)
		c.incrementStat(&c.stats.PoolInits)
	}
	return nil
}

// reserve counts n bytes against Config.MemoryLimit.
func (c *FS) reserve(n int64, what string) error {
	if limit := c.config.MemoryLimit; limit > 0 && c.reserved+n > limit {
		return fmt.Errorf("%w: %s need %d bytes, %d of %d already reserved",
			ErrNoMemory, what, n, c.reserved, limit)
	}
	c.reserved += n
	return nil
}

// Reserved returns the bytes held by provisioned pools.
func (c *FS) Reserved() int64 {
	c.sbLock.Lock()
	defer c.sbLock.Unlock()
	return c.reserved
}

// Close releases every pool. No compression or decompression may be in
// flight. Closing twice is a no-op.
func (c *FS) Close() error {
	c.sbLock.Lock()
	defer c.sbLock.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var result *multierror.Error
	if p := c.decompressWorkspace.Swap(nil); p != nil {
		if err := p.close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for typ := range c.compressWorkspace {
		if p := c.compressWorkspace[typ].Swap(nil); p != nil {
			if err := p.close(); err != nil {
				result = multierror.Append(result, fmt.Errorf("%s workspaces: %w", Type(typ), err))
			}
		}
	}
	for rw := range c.bounce {
		if p := c.bounce[rw].Swap(nil); p != nil {
			if err := p.Close(); err != nil {
				result = multierror.Append(result, fmt.Errorf("%s bounce pool: %w", Direction(rw), err))
			}
		}
	}
	c.reserved = 0
	return result.ErrorOrNil()
}
