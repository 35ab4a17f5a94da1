package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facecap"
	"github.com/kozaktomas/face-attendance/internal/hub"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/notify"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// runTask executes one unit of work: decode + downscale the frame, detect
// faces, match against the enrolled roster and run every accepted match
// through the decision engine.
func (p *Pipeline) runTask(ctx context.Context, t *task) *taskResult {
	res := &taskResult{connID: t.connID}

	if p.guard.exceeded() {
		res.ack = hub.NewDetectionResult(hub.StatusOverloaded, nil, "system overloaded")
		return res
	}

	resized, err := facecap.ResizeImage(t.image, constants.MaxImageSize)
	if err != nil {
		res.ack = hub.NewDetectionResult(hub.StatusError, nil, "invalid image data")
		return res
	}

	faces, err := p.faces.DetectAndEmbed(ctx, resized)
	if err != nil {
		log.Printf("face detection failed for task %s: %v", t.id, err)
		res.ack = hub.NewDetectionResult(hub.StatusError, nil, "face detection failed")
		return res
	}
	if len(faces) == 0 {
		res.ack = hub.NewDetectionResult(hub.StatusNoFace, nil, "no face detected")
		return res
	}

	// Second headroom check before the O(faces x candidates) scoring.
	if p.guard.exceeded() {
		res.ack = hub.NewDetectionResult(hub.StatusOverloaded, nil, "system overloaded")
		return res
	}

	queries := make([][]float32, len(faces))
	for i, f := range faces {
		queries[i] = f.Embedding
	}

	r := p.rosterVal.Get(ctx)
	matches := p.matcher.FindMatches(queries, p.candidatesFor(queries, r), p.threshold)
	if len(matches) == 0 {
		res.ack = hub.NewDetectionResult(hub.StatusNoMatch, nil, "no enrolled face matched")
		return res
	}

	now := time.Now()
	var infos []hub.MatchInfo
	var message string
	failures := 0

	for _, m := range matches {
		emp, ok := r.byID[m.EmployeeID]
		if !ok {
			continue
		}

		decision, err := p.engine.Process(ctx, &emp, m.Similarity, now)
		if err != nil {
			log.Printf("attendance decision failed for %s: %v", emp.EmployeeID, err)
			failures++
			continue
		}

		infos = append(infos, hub.MatchInfo{
			EmployeeID: emp.EmployeeID,
			Name:       emp.Name,
			Similarity: m.Similarity,
			Action:     string(decision.Action),
		})
		if message == "" {
			message = decision.Message
		}

		if decision.StateChanged() {
			ev := hub.NewAttendanceUpdate(string(decision.Action), emp.EmployeeID, emp.Name, now, m.Similarity)
			ev.IsLate = decision.Record.IsLate
			ev.IsEarly = decision.Record.IsEarlyExit
			ev.Message = decision.Message
			res.events = append(res.events, ev)
			res.notes = append(res.notes, hub.NewNotification(emp.Name+": "+decision.Message))

			p.notifyDecision(emp, decision, now)
		}
	}

	if len(infos) == 0 {
		res.ack = hub.NewDetectionResult(hub.StatusError, nil, "attendance update failed")
		return res
	}
	if failures > 0 {
		message = "some matches could not be recorded"
	}
	res.ack = hub.NewDetectionResult(hub.StatusOK, infos, message)
	return res
}

// candidatesFor returns the candidate set for a batch of queries. With a
// populated index the scan is prefiltered to the nearest neighbors of each
// query; otherwise the full roster is scanned.
func (p *Pipeline) candidatesFor(queries [][]float32, r roster) []match.Candidate {
	if p.index == nil || p.index.Len() == 0 || p.index.Len() != len(r.candidates) {
		return r.candidates
	}

	seen := make(map[string]struct{})
	var subset []match.Candidate
	for _, q := range queries {
		near, err := p.index.Search(q, constants.HNSWCandidateLimit)
		if err != nil {
			return r.candidates
		}
		for _, cand := range near {
			if _, ok := seen[cand.EmployeeID]; ok {
				continue
			}
			seen[cand.EmployeeID] = struct{}{}
			subset = append(subset, cand)
		}
	}
	return subset
}

// notifyDecision fires the notifications for a state-changing decision.
// Delivery is asynchronous and failures only log; notification problems
// must never affect attendance state.
func (p *Pipeline) notifyDecision(emp store.Employee, d *attendance.Decision, at time.Time) {
	switch d.Action {
	case attendance.ActionEntry:
		p.sendNotifications(notify.Event{Kind: notify.KindEntry, Employee: emp, At: at})
		if d.Record.IsLate {
			p.sendNotifications(notify.Event{Kind: notify.KindLate, Employee: emp, At: at, Detail: d.Record.LateMessage})
		}
	case attendance.ActionExit:
		p.sendNotifications(notify.Event{Kind: notify.KindExit, Employee: emp, At: at})
		if d.Record.IsEarlyExit {
			p.sendNotifications(notify.Event{Kind: notify.KindEarlyExit, Employee: emp, At: at, Detail: d.Record.EarlyExitMessage})
		}
	}
}

// sendNotifications delivers entry/exit plus late/early-exit notifications.
func (p *Pipeline) sendNotifications(ev notify.Event) {
	if p.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.notifier.Notify(ctx, ev); err != nil {
			log.Printf("notification (%s) for %s failed: %v", ev.Kind, ev.Employee.EmployeeID, err)
		}
	}()
}
