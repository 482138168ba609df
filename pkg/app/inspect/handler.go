package inspect

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-linearcache/internal/cache"
	"github.com/deploymenttheory/go-linearcache/internal/checksum"
	"github.com/deploymenttheory/go-linearcache/internal/layout"
	"github.com/deploymenttheory/go-linearcache/internal/mirror"
	"github.com/deploymenttheory/go-linearcache/internal/types"
	"github.com/deploymenttheory/go-linearcache/pkg/app"
)

type openedCache struct {
	vol     *app.Volume
	sectors uint32
	header  *types.Header
	checks  layout.HeaderChecks
}

// openCache opens the image read-only and decodes its header
func openCache(ctx *app.Context, target app.ImageTarget, id types.Identity, retries uint32) (*openedCache, error) {
	vol, err := app.OpenVolume(ctx, target, app.OpenOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}

	info, _ := vol.Storage.VolumeInfo(types.RoleLinearCache)
	oc := &openedCache{vol: vol, sectors: info.SectorCount()}

	sector := make([]byte, types.SectorSize)
	if err := vol.Storage.LinearRead(types.RoleLinearCache, sector, 0, 1, retries); err != nil {
		_ = vol.Close()
		return nil, app.NewError(app.ErrCodeIO, "cannot read cache header", err)
	}

	if oc.checks, err = layout.CheckHeader(sector, id); err != nil {
		_ = vol.Close()
		return nil, err
	}
	if oc.header, err = layout.ParseHeader(sector); err != nil {
		_ = vol.Close()
		return nil, err
	}
	return oc, nil
}

func (oc *openedCache) close(ctx *app.Context) {
	if err := oc.vol.Close(); err != nil {
		ctx.Logger.WithError(err).Warn("closing image")
	}
}

// elementCount returns the count the read API may use. force accepts a
// sealed header written by another build.
func (oc *openedCache) elementCount(force bool) (uint32, error) {
	usable := oc.checks.Trusted() || (force && oc.checks.Checksum && oc.checks.Signature)
	if !usable {
		return 0, app.NewError(app.ErrCodeCacheInvalid, "cache header is not valid for this build", nil)
	}
	if oc.sectors < 2 || oc.header.ElementCount > oc.sectors-1 {
		return 0, app.NewError(app.ErrCodeCacheInvalid,
			fmt.Sprintf("header claims %d elements on a %d sector volume", oc.header.ElementCount, oc.sectors), nil)
	}
	return oc.header.ElementCount, nil
}

// readElement reads element index and verifies its info and data
func (oc *openedCache) readElement(index, retries uint32, withData bool) (types.ElementInfo, []byte, bool, bool, error) {
	scratch := make([]byte, types.SectorSize)
	info, err := cache.ElementInfo(oc.vol.Storage, index, scratch, retries)
	if err != nil {
		return info, nil, false, false, app.NewError(app.ErrCodeIO, fmt.Sprintf("cannot read element %d", index), err)
	}
	infoValid := checksum.CheckSector(scratch)
	if !withData || !infoValid || layout.SectorsFor(info.Octets) != info.SectorCount {
		return info, nil, infoValid, false, nil
	}

	data := make([]byte, int(info.SectorCount)*types.SectorSize)
	if err := cache.ElementData(oc.vol.Storage, &info, 0, info.SectorCount, data, retries); err != nil {
		return info, nil, infoValid, false, app.NewError(app.ErrCodeIO, fmt.Sprintf("cannot read element %d data", index), err)
	}
	dataValid := checksum.CRC32C(0, data) == info.DataCRC
	return info, data[:info.Octets], infoValid, dataValid, nil
}

// Header decodes the cache header
func Header(ctx *app.Context, req *HeaderRequest) (*HeaderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	oc, err := openCache(ctx, req.Target, req.Identity, req.Retries)
	if err != nil {
		return nil, err
	}
	defer oc.close(ctx)

	return &HeaderResponse{
		Image:         req.Target.String(),
		VolumeSectors: oc.sectors,
		Header:        *oc.header,
		Checks: HeaderChecks{
			Checksum:         oc.checks.Checksum,
			Signature:        oc.checks.Signature,
			FrameworkVersion: oc.checks.FrameworkVersion,
			AppName:          oc.checks.AppName,
			AppVersion:       oc.checks.AppVersion,
		},
		Trusted: oc.checks.Trusted(),
	}, nil
}

// List reads the info of every cached element
func List(ctx *app.Context, req *ListRequest) (*ListResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	oc, err := openCache(ctx, req.Target, req.Identity, req.Retries)
	if err != nil {
		return nil, err
	}
	defer oc.close(ctx)

	count, err := oc.elementCount(req.Force)
	if err != nil {
		return nil, err
	}

	ctx.Log(fmt.Sprintf("Listing %d elements of %s", count, req.Target.String()))

	response := &ListResponse{
		Image:    req.Target.String(),
		Trusted:  oc.checks.Trusted(),
		Elements: make([]ElementEntry, 0, count),
	}
	for i := uint32(0); i < count; i++ {
		info, _, infoValid, dataValid, err := oc.readElement(i, req.Retries, req.VerifyData)
		if err != nil {
			return nil, err
		}
		response.Elements = append(response.Elements, ElementEntry{
			Index:       i,
			Path:        info.Path,
			Octets:      info.Octets,
			SectorBegin: info.SectorBegin,
			SectorEnd:   info.SectorEnd,
			SectorCount: info.SectorCount,
			DataCRC:     info.DataCRC,
			Modified:    mirror.FATTime(info.FileDate, info.FileTime),
			InfoValid:   infoValid,
			DataChecked: req.VerifyData && infoValid,
			DataValid:   dataValid,
		})
		ctx.Progress(fmt.Sprintf("element %d", i), int(uint64(i+1)*100/uint64(count)))
	}

	return response, nil
}

// Extract copies one cached element into a file
func Extract(ctx *app.Context, req *ExtractRequest) (*ExtractResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	fs := req.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	oc, err := openCache(ctx, req.Target, req.Identity, req.Retries)
	if err != nil {
		return nil, err
	}
	defer oc.close(ctx)

	count, err := oc.elementCount(req.Force)
	if err != nil {
		return nil, err
	}
	if req.Index >= count {
		return nil, app.NewError(app.ErrCodeElementNotFound,
			fmt.Sprintf("element %d not cached, the cache holds %d", req.Index, count), nil)
	}

	info, data, infoValid, dataValid, err := oc.readElement(req.Index, req.Retries, true)
	if err != nil {
		return nil, err
	}
	verified := infoValid && dataValid
	if !verified && !req.Force {
		return nil, app.NewError(app.ErrCodeCacheInvalid, fmt.Sprintf("element %d fails its checksums", req.Index), nil)
	}
	if data == nil {
		return nil, app.NewError(app.ErrCodeCacheInvalid, fmt.Sprintf("element %d info is unusable", req.Index), nil)
	}

	dest := req.Dest
	if isDir, _ := afero.IsDir(fs, dest); isDir {
		name := path.Base(info.Path)
		if info.Path == "" || name == "/" || name == "." {
			name = fmt.Sprintf("element-%d.bin", req.Index)
		}
		dest = filepath.Join(dest, name)
	}
	if exists, _ := afero.Exists(fs, dest); exists && !req.Overwrite {
		return nil, app.NewError(app.ErrCodeInvalidInput, "destination exists: "+dest, nil)
	}
	if err := afero.WriteFile(fs, dest, data, 0o644); err != nil {
		return nil, app.NewError(app.ErrCodeIO, "cannot write "+dest, err)
	}
	if info.FileDate != 0 {
		mod := mirror.FATTime(info.FileDate, info.FileTime)
		if err := fs.Chtimes(dest, mod, mod); err != nil {
			ctx.Logger.WithError(err).WithField("dest", dest).Warn("cannot set modification time")
		}
	}

	ctx.Log(fmt.Sprintf("Extracted element %d (%d bytes) to %s", req.Index, len(data), dest))

	return &ExtractResponse{
		Image:    req.Target.String(),
		Index:    req.Index,
		Path:     info.Path,
		Dest:     dest,
		Octets:   info.Octets,
		DataCRC:  info.DataCRC,
		Verified: verified,
	}, nil
}
