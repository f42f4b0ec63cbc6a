package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/kqsx/internal/domain/frequency"
	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/platform/id"
)

type prizeKey struct {
	level lottery.PrizeLevel
	order int
}

type storedPrize struct {
	prize      lottery.Prize
	active     map[string][]string
	superseded []lottery.Result
}

type storedDraw struct {
	draw   lottery.Draw
	prizes map[prizeKey]*storedPrize
	order  []prizeKey
}

// LotteryRepository keeps draws in process. It follows the same write rules
// as the Postgres repository and backs tests and dry runs.
type LotteryRepository struct {
	mu          sync.RWMutex
	nextID      int64
	draws       map[lottery.DrawKey]*storedDraw
	audits      []lottery.AuditRecord
	frequencies map[string][]frequency.Entry
	ids         id.Generator
	now         func() time.Time
}

var (
	_ lottery.Repository   = (*LotteryRepository)(nil)
	_ frequency.Repository = (*LotteryRepository)(nil)
)

func NewLotteryRepository(ids id.Generator) *LotteryRepository {
	if ids == nil {
		ids = &id.Sequence{Prefix: "audit"}
	}
	return &LotteryRepository{
		draws:       make(map[lottery.DrawKey]*storedDraw),
		frequencies: make(map[string][]frequency.Entry),
		ids:         ids,
		now:         time.Now,
	}
}

func (r *LotteryRepository) UpsertDraw(_ context.Context, draw lottery.Draw, meta lottery.WriteMeta) (lottery.WriteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auditID, err := r.ids.NewID()
	if err != nil {
		return lottery.WriteResult{}, fmt.Errorf("generate audit id: %w", err)
	}

	key := draw.Key()
	stored, exists := r.draws[key]
	if exists && !stored.draw.Status.CanTransition(draw.Status) {
		res := lottery.WriteResult{DrawID: stored.draw.ID, Action: lottery.ActionUnchanged, Status: stored.draw.Status}
		r.audits = append(r.audits, lottery.NewAuditRecord(auditID, draw, meta, res, r.now().UTC()))
		return res, nil
	}

	var previousStatus lottery.DrawStatus
	if !exists {
		r.nextID++
		stored = &storedDraw{prizes: make(map[prizeKey]*storedPrize)}
		stored.draw.ID = r.nextID
		r.draws[key] = stored
	} else {
		previousStatus = stored.draw.Status
	}

	stored.draw.Game = draw.Game
	stored.draw.Date = lottery.DateOf(draw.Date)
	stored.draw.Sequence = draw.Sequence
	stored.draw.Status = draw.Status
	stored.draw.SourceURL = draw.SourceURL
	stored.draw.RawFeed = draw.RawFeed
	stored.draw.Provinces = mergeProvinces(stored.draw.Provinces, draw.Provinces)

	res := lottery.WriteResult{DrawID: stored.draw.ID, Status: draw.Status}
	for _, prize := range draw.Prizes {
		pk := prizeKey{level: prize.Level, order: prize.Order}
		sp, ok := stored.prizes[pk]
		if !ok {
			sp = &storedPrize{active: make(map[string][]string)}
			stored.prizes[pk] = sp
			stored.order = append(stored.order, pk)
		}
		sp.prize = prize
		sp.prize.Results = nil
		res.PrizesUpserted++

		for _, result := range prize.Results {
			current, had := sp.active[result.ProvinceCode]
			switch {
			case had && slices.Equal(current, result.Numbers):
				res.ResultsUnchanged++
				continue
			case had:
				sp.superseded = append(sp.superseded, lottery.Result{ProvinceCode: result.ProvinceCode, Numbers: current})
				res.Corrections = append(res.Corrections, lottery.Correction{
					Prize:    prize.Level,
					Order:    prize.Order,
					Province: result.ProvinceCode,
					Previous: append([]string{}, current...),
					Current:  append([]string{}, result.Numbers...),
				})
			}
			sp.active[result.ProvinceCode] = append([]string{}, result.Numbers...)
			res.ResultsInserted++
		}
	}

	switch {
	case !exists:
		res.Action = lottery.ActionInserted
	case res.ResultsInserted > 0 || previousStatus != draw.Status:
		res.Action = lottery.ActionUpdated
	default:
		res.Action = lottery.ActionUnchanged
	}
	r.audits = append(r.audits, lottery.NewAuditRecord(auditID, draw, meta, res, r.now().UTC()))
	return res, nil
}

func (r *LotteryRepository) ListCompletedDraws(_ context.Context, date time.Time, region lottery.RegionCode) ([]lottery.Draw, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := lottery.DateOf(date)
	var out []lottery.Draw
	for _, stored := range r.draws {
		if stored.draw.Game.Region != region || !stored.draw.Date.Equal(day) || stored.draw.Status != lottery.DrawStatusCompleted {
			continue
		}
		out = append(out, stored.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].Game.Code < out[j].Game.Code
	})
	return out, nil
}

func (s *storedDraw) snapshot() lottery.Draw {
	d := s.draw
	d.Provinces = append([]lottery.Province{}, s.draw.Provinces...)
	d.Prizes = make([]lottery.Prize, 0, len(s.order))
	for _, pk := range s.order {
		sp := s.prizes[pk]
		prize := sp.prize
		codes := make([]string, 0, len(sp.active))
		for code := range sp.active {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			prize.Results = append(prize.Results, lottery.Result{
				ProvinceCode: code,
				Numbers:      append([]string{}, sp.active[code]...),
			})
		}
		d.Prizes = append(d.Prizes, prize)
	}
	return d
}

// Audits returns the audit log in write order.
func (r *LotteryRepository) Audits() []lottery.AuditRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]lottery.AuditRecord{}, r.audits...)
}

// DrawCount is the number of stored draws in any status.
func (r *LotteryRepository) DrawCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.draws)
}

// SupersededCount is the number of result rows replaced by corrections.
func (r *LotteryRepository) SupersededCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, stored := range r.draws {
		for _, sp := range stored.prizes {
			n += len(sp.superseded)
		}
	}
	return n
}

func (r *LotteryRepository) ListGameCodes(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, stored := range r.draws {
		seen[stored.draw.Game.Code] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Strings(out)
	return out, nil
}

func (r *LotteryRepository) Rebuild(_ context.Context, gameCode string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	since = lottery.DateOf(since)
	counts := make(map[string]*frequency.Entry)
	var region lottery.RegionCode
	for _, stored := range r.draws {
		d := stored.draw
		if d.Game.Code != gameCode || d.Status != lottery.DrawStatusCompleted || d.Date.Before(since) {
			continue
		}
		region = d.Game.Region
		for _, sp := range stored.prizes {
			for _, numbers := range sp.active {
				for _, n := range numbers {
					if len(n) < 2 {
						continue
					}
					tail := n[len(n)-2:]
					e, ok := counts[tail]
					if !ok {
						e = &frequency.Entry{GameCode: gameCode, Tail: tail}
						counts[tail] = e
					}
					e.Hits++
					if d.Date.After(e.LastSeen) {
						e.LastSeen = d.Date
					}
				}
			}
		}
	}

	entries := make([]frequency.Entry, 0, len(counts))
	for _, e := range counts {
		e.Region = region
		entries = append(entries, *e)
	}
	r.frequencies[gameCode] = entries
	return len(entries), nil
}

func (r *LotteryRepository) Top(_ context.Context, region lottery.RegionCode, limit int) ([]frequency.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []frequency.Entry
	for _, entries := range r.frequencies {
		for _, e := range entries {
			if e.Region == region {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hits != out[j].Hits {
			return out[i].Hits > out[j].Hits
		}
		return out[i].Tail < out[j].Tail
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func mergeProvinces(stored, incoming []lottery.Province) []lottery.Province {
	byCode := make(map[string]lottery.Province, len(stored)+len(incoming))
	for _, p := range stored {
		byCode[p.Code] = p
	}
	for _, p := range incoming {
		byCode[p.Code] = p
	}
	out := make([]lottery.Province, 0, len(byCode))
	for _, p := range byCode {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
