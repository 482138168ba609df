package check

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-linearcache/internal/cache"
	"github.com/deploymenttheory/go-linearcache/internal/interfaces"
	"github.com/deploymenttheory/go-linearcache/internal/mirror"
	"github.com/deploymenttheory/go-linearcache/internal/types"
	"github.com/deploymenttheory/go-linearcache/pkg/app"
)

// Handle runs one verification or rebuild pass over the cache image
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	// 1. Validate request
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx.Log(fmt.Sprintf("Checking cache in: %s (%s)", req.Target.String(), req.Mode()))

	// 2. Open the image, read-only unless the pass may rebuild it
	vol, err := app.OpenVolume(ctx, req.Target, app.OpenOptions{
		ReadOnly: req.MirrorRoot == "",
		InMemory: req.DryRun,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := vol.Close(); cerr != nil {
			ctx.Logger.WithError(cerr).Warn("closing image")
		}
	}()

	var slots interfaces.SlotMirror
	if req.MirrorRoot != "" {
		fs := afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), req.MirrorRoot))
		slots = mirror.New(fs, req.FrameworkDir, req.ApplicationDir)
	}

	log := ctx.Logger.WithField("image", req.Target.Path)
	p, err := cache.New(vol.Storage, slots, vol.Storage, req.Identity,
		cache.WithRetries(req.Retries),
		cache.WithProgressScale(req.ProgressScale),
		cache.WithSkipDataCheck(req.SkipDataCheck),
		cache.WithLogger(log),
		cache.WithBreak(func() bool { return ctx.Err() != nil }),
	)
	if err != nil {
		return nil, app.NewError(app.ErrCodeInvalidInput, "cannot start cache pass", err)
	}
	defer p.Close()

	// 3. Drive the pass
	response := &Response{
		Image:  req.Target.String(),
		Mode:   req.Mode(),
		DryRun: req.DryRun,
	}

	headerSeen := false
	for p.Step() {
		response.Steps++

		if err := ctx.Err(); err != nil {
			return nil, app.NewError(app.ErrCodeCanceled, "cache pass interrupted", err)
		}

		if !headerSeen && p.LastTask() == types.StageReadHeader {
			headerSeen = true
			response.Header = headerStatus(p)
			logHeader(log, &response.Header)
		}

		if p.LastTask().Streaming() || p.NextTask().Streaming() {
			ctx.Progress(fmt.Sprintf("element %d", p.Element()),
				int(p.ElementProgress()*100/uint32(req.ProgressScale)))
		}

		if p.NextTask() == types.StageNextIteration && p.ChecksFailed() == 0 {
			logElement(log, p)
		}
	}

	response.Summary = p.Summary()
	response.Elapsed = time.Since(startTime)

	// 4. Collect storage counters
	if req.Metrics {
		samples, err := vol.Metrics()
		if err != nil {
			return nil, app.NewError(app.ErrCodeIO, "cannot gather metrics", err)
		}
		response.Metrics = samples
	}

	ctx.Progress("Complete", 100)
	ctx.Log(fmt.Sprintf("Check completed: %d elements in %v", response.Summary.ElementCount, response.Elapsed))

	return response, nil
}

func headerStatus(p *cache.Process) HeaderStatus {
	status := HeaderStatus{
		Passed: p.ChecksPassed().Names(),
		Failed: p.ChecksFailed().Names(),
	}
	h := p.Header()
	if h == nil {
		return status
	}

	status.Read = true
	status.Trusted = p.ChecksFailed() == 0
	status.Signature = h.Signature
	status.FrameworkVersion = h.FrameworkVersion
	status.AppName = h.AppName
	status.AppVersion = h.AppVersion
	status.ElementCount = h.ElementCount
	return status
}

// logHeader reports the header the way a boot-time check prints it
func logHeader(log *logrus.Entry, h *HeaderStatus) {
	entry := log.WithFields(logrus.Fields{
		"signature":         h.Signature,
		"framework_version": h.FrameworkVersion,
		"app_name":          h.AppName,
		"app_version":       h.AppVersion,
		"elements":          h.ElementCount,
	})
	if !h.Read {
		entry.Error("cache header unreadable")
		return
	}
	if !h.Trusted {
		entry.WithField("failed", h.Failed).Warn("cache header invalid")
		return
	}
	entry.Info("cache header valid")
}

func logElement(log *logrus.Entry, p *cache.Process) {
	info := p.CurrentInfo()
	log.WithFields(logrus.Fields{
		"element": p.Element(),
		"path":    info.Path,
		"octets":  info.Octets,
		"sectors": info.SectorCount,
		"passed":  p.ChecksPassed().String(),
	}).Debug("element ok")
}
