package service

import (
	"context"
	"sort"

	"deepsearch/internal/platform/events"
	"deepsearch/internal/search/models"
	"deepsearch/internal/search/normalize"
	dErrors "deepsearch/pkg/domain-errors"
	strutil "deepsearch/pkg/platform/strings"
)

// SubmitAnswers folds clarifying answers into a job waiting on disambiguation.
// Non-empty hint fields overwrite the stored normalized query; the job stays
// in needs_disambiguation so the caller can follow up with a candidate choice
// or more hints.
func (s *Service) SubmitAnswers(ctx context.Context, jobID string, hints models.SearchInput) (*models.Job, error) {
	err := s.store.Update(ctx, jobID, func(job *models.Job) error {
		if job.Status != models.StatusNeedsDisambiguation {
			return dErrors.Newf(dErrors.CodeConflict, "job %s is %s, not awaiting disambiguation", jobID, job.Status)
		}
		if job.Result == nil {
			return dErrors.Newf(dErrors.CodeConflict, "job %s has no result to refine", jobID)
		}
		normalized := normalize.Normalize(hints)
		foldQuery(&job.Result.NormalizedQuery, normalized)
		job.Status = models.StatusNeedsDisambiguation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, jobID)
}

// ChooseCandidate resolves a job waiting on disambiguation by picking one
// candidate from the stored list. The profile's names are replaced by the
// chosen candidate's; its contact fields are unioned with what the profile
// already held. The job transitions to completed.
func (s *Service) ChooseCandidate(ctx context.Context, jobID string, index int) (*models.Job, error) {
	err := s.store.Update(ctx, jobID, func(job *models.Job) error {
		if job.Status != models.StatusNeedsDisambiguation {
			return dErrors.Newf(dErrors.CodeConflict, "job %s is %s, not awaiting disambiguation", jobID, job.Status)
		}
		if job.Result == nil {
			return dErrors.Newf(dErrors.CodeConflict, "job %s has no candidates", jobID)
		}
		if index < 0 || index >= len(job.Result.Candidates) {
			return dErrors.Newf(dErrors.CodeBadRequest, "candidate index %d out of range [0, %d)", index, len(job.Result.Candidates))
		}

		chosen := job.Result.Candidates[index]
		profile := &job.Result.Profile
		if chosen.DisplayName != "" {
			profile.Names = []string{chosen.DisplayName}
		} else {
			profile.Names = []string{}
		}
		profile.Emails = unionSorted(profile.Emails, chosen.Emails)
		profile.Phones = unionSorted(profile.Phones, chosen.Phones)
		profile.Usernames = unionSorted(profile.Usernames, chosen.Usernames)
		profile.Locations = unionSorted(profile.Locations, chosen.Locations)
		profile.Links = unionSorted(profile.Links, chosen.Links)

		job.Status = models.StatusCompleted
		job.Questions = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, events.Event{Type: "job_completed", JobID: jobID, Status: string(job.Status)})
	return job, nil
}

// foldQuery overwrites dst fields with the non-empty fields of src.
func foldQuery(dst *models.Query, src models.Query) {
	if src.Email != "" {
		dst.Email = src.Email
	}
	if src.Phone != "" {
		dst.Phone = src.Phone
	}
	if src.FullName != "" {
		dst.FullName = src.FullName
	}
	if src.Username != "" {
		dst.Username = src.Username
	}
	if src.Location != "" {
		dst.Location = src.Location
	}
	if src.ContextText != "" {
		dst.ContextText = src.ContextText
	}
}

// unionSorted merges two string sets into a sorted, deduplicated slice,
// dropping empty values.
func unionSorted(a, b []string) []string {
	merged := make([]string, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	out := strutil.DedupeAndTrim(merged)
	sort.Strings(out)
	return out
}
