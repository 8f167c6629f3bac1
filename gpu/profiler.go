// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package gpu

import (
	"fmt"
	"time"

	"honnef.co/go/safeish"
	"honnef.co/go/wgpu"
)

// maxTimestamps is the number of timestamps a single group can record.
const maxTimestamps = 64

// Profiler records GPU timestamps around passes. A nil *Profiler is valid
// and records nothing, as is the nil *ProfileGroup it returns. Timings are
// best effort: a frame whose timestamps haven't arrived by Release is
// dropped.
//
// Usage per frame: Start a group, pass the group's Compute and Render
// timestamp writes to the passes, End the group, Resolve into the frame's
// encoder, submit, then call Map. Collect returns the frames whose
// timestamps have arrived.
type Profiler struct {
	ctx *Context
	// drives map callbacks; Device.Poll
	poll func(wait bool) bool

	// started groups that haven't been resolved yet
	pending []*ProfileGroup
	// resolved and submitted, waiting for Map
	resolved []*ProfileGroup
	// being mapped, oldest first
	mapped []*ProfileGroup

	// free list of groups, including their query sets and buffers
	free []*ProfileGroup
}

// NewProfiler returns a profiler for ctx, or nil if the device doesn't
// support timestamp queries.
func NewProfiler(ctx *Context) *Profiler {
	if ctx == nil || !ctx.CanProfile {
		return nil
	}
	return &Profiler{ctx: ctx, poll: ctx.Device.Poll}
}

type passQuery struct {
	label   string
	startID uint32
	endID   uint32
}

// ProfileGroup collects the passes of one frame.
type ProfileGroup struct {
	Tag   uint64
	Label string

	cpuStart time.Time
	cpuEnd   time.Time
	queries  []passQuery
	nextID   uint32

	set        *wgpu.QuerySet
	resolveBuf *wgpu.Buffer
	mapBuf     *wgpu.Buffer
	ch         <-chan error
}

func (p *Profiler) Start(tag uint64, label string) *ProfileGroup {
	if p == nil {
		return nil
	}
	var g *ProfileGroup
	if n := len(p.free); n > 0 {
		g = p.free[n-1]
		p.free = p.free[:n-1]
		clear(g.queries)
		g.queries = g.queries[:0]
		g.nextID = 0
		g.cpuEnd = time.Time{}
		g.ch = nil
	} else {
		dev := p.ctx.Device
		g = &ProfileGroup{
			set: dev.CreateQuerySet(&wgpu.QuerySetDescriptor{
				Type:  wgpu.QueryTypeTimestamp,
				Count: maxTimestamps,
			}),
			resolveBuf: dev.CreateBuffer(&wgpu.BufferDescriptor{
				Label: "profiler resolve",
				Usage: wgpu.BufferUsageQueryResolve | wgpu.BufferUsageCopySrc,
				Size:  maxTimestamps * 8,
			}),
			mapBuf: dev.CreateBuffer(&wgpu.BufferDescriptor{
				Label: "profiler readback",
				Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
				Size:  maxTimestamps * 8,
			}),
		}
	}
	g.Tag = tag
	g.Label = label
	g.cpuStart = time.Now()
	p.pending = append(p.pending, g)
	return g
}

func (g *ProfileGroup) End() {
	if g == nil {
		return
	}
	if !g.cpuEnd.IsZero() {
		panic("trying to end same group twice")
	}
	g.cpuEnd = time.Now()
}

func (g *ProfileGroup) query(label string) (uint32, uint32) {
	if g.nextID+2 > maxTimestamps {
		panic(fmt.Sprintf("profile group %q has too many passes", g.Label))
	}
	q := passQuery{label: label, startID: g.nextID, endID: g.nextID + 1}
	g.nextID += 2
	g.queries = append(g.queries, q)
	return q.startID, q.endID
}

func (g *ProfileGroup) Compute(label string) *wgpu.ComputePassTimestampWrites {
	if g == nil {
		return nil
	}
	start, end := g.query(label)
	return &wgpu.ComputePassTimestampWrites{
		QuerySet:                  g.set,
		BeginningOfPassWriteIndex: start,
		EndOfPassWriteIndex:       end,
	}
}

func (g *ProfileGroup) Render(label string) *wgpu.RenderPassTimestampWrites {
	if g == nil {
		return nil
	}
	start, end := g.query(label)
	return &wgpu.RenderPassTimestampWrites{
		QuerySet:                  g.set,
		BeginningOfPassWriteIndex: start,
		EndOfPassWriteIndex:       end,
	}
}

// Resolve records the copies of all pending groups' timestamps into enc.
func (p *Profiler) Resolve(enc *wgpu.CommandEncoder) {
	if p == nil {
		return
	}
	for _, g := range p.pending {
		if g.nextID == 0 {
			continue
		}
		enc.ResolveQuerySet(g.set, 0, g.nextID, g.resolveBuf, 0)
		enc.CopyBufferToBuffer(g.resolveBuf, 0, g.mapBuf, 0, uint64(g.nextID)*8)
	}
	p.resolved = append(p.resolved, p.pending...)
	clear(p.pending)
	p.pending = p.pending[:0]
}

// Map starts mapping the groups resolved so far. It must be called after
// the encoder passed to Resolve has been submitted.
func (p *Profiler) Map() {
	if p == nil {
		return
	}
	for _, g := range p.resolved {
		if g.nextID == 0 {
			ch := make(chan error, 1)
			ch <- nil
			g.ch = ch
			continue
		}
		g.ch = g.mapBuf.Map(p.ctx.Device, wgpu.MapModeRead, 0, int(g.nextID)*8)
	}
	p.mapped = append(p.mapped, p.resolved...)
	clear(p.resolved)
	p.resolved = p.resolved[:0]
}

type PassTiming struct {
	Label string
	// GPU duration of the pass.
	Duration time.Duration
}

type ProfileResult struct {
	Tag    uint64
	Label  string
	CPU    time.Duration
	Passes []PassTiming
}

func (r ProfileResult) String() string {
	s := fmt.Sprintf("%s #%d: cpu %s", r.Label, r.Tag, r.CPU)
	for _, pass := range r.Passes {
		s += fmt.Sprintf(", %s %s", pass.Label, pass.Duration)
	}
	return s
}

func (g *ProfileGroup) result(stamps []uint64) ProfileResult {
	res := ProfileResult{
		Tag:    g.Tag,
		Label:  g.Label,
		CPU:    g.cpuEnd.Sub(g.cpuStart),
		Passes: make([]PassTiming, len(g.queries)),
	}
	for i, q := range g.queries {
		var d time.Duration
		// Timestamps aren't guaranteed to be monotonic across passes.
		if end, start := stamps[q.endID], stamps[q.startID]; end > start {
			d = time.Duration(end - start)
		}
		res.Passes[i] = PassTiming{Label: q.label, Duration: d}
	}
	return res
}

// Collect returns the results of all groups whose timestamps are available,
// in the order the groups were started. It doesn't block.
func (p *Profiler) Collect() ([]ProfileResult, error) {
	if p == nil {
		return nil, nil
	}
	if len(p.mapped) == 0 {
		return nil, nil
	}
	p.poll(false)
	var out []ProfileResult
	var err error
	n := 0
collect:
	for _, g := range p.mapped {
		select {
		case err = <-g.ch:
		default:
			// Stop at the first group that isn't ready so that results are
			// returned in order.
			break collect
		}
		n++
		p.free = append(p.free, g)
		if err != nil {
			err = fmt.Errorf("gpu: mapping timestamps: %w", err)
			break
		}
		var stamps []uint64
		if g.nextID != 0 {
			stamps = safeish.SliceCast[[]uint64](g.mapBuf.ReadOnlyMappedRange(0, int(g.nextID)*8))
		}
		out = append(out, g.result(stamps))
		if g.nextID != 0 {
			g.mapBuf.Unmap()
		}
	}
	copy(p.mapped, p.mapped[n:])
	clear(p.mapped[len(p.mapped)-n:])
	p.mapped = p.mapped[:len(p.mapped)-n]
	return out, err
}

// Release frees the query sets and buffers of all groups, including those
// whose timestamps are still in flight.
func (p *Profiler) Release() {
	if p == nil {
		return
	}
	if len(p.mapped) > 0 {
		p.poll(false)
	}
	for _, g := range p.mapped {
		select {
		case err := <-g.ch:
			if err == nil && g.nextID != 0 {
				g.mapBuf.Unmap()
			}
		default:
			// Releasing the buffer cancels the mapping.
		}
	}
	for _, list := range [][]*ProfileGroup{p.pending, p.resolved, p.mapped, p.free} {
		for _, g := range list {
			g.release()
		}
	}
	p.pending, p.resolved, p.mapped, p.free = nil, nil, nil, nil
}

func (g *ProfileGroup) release() {
	if g.set != nil {
		g.set.Release()
	}
	if g.resolveBuf != nil {
		g.resolveBuf.Release()
	}
	if g.mapBuf != nil {
		g.mapBuf.Release()
	}
}
