package crmsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/veltex/warehouse-backend/internal/grants"
	"github.com/veltex/warehouse-backend/internal/ingest"
	"github.com/veltex/warehouse-backend/pkg/enums"
)

// handleOrgAccess replaces a subject's whole organization-grant snapshot,
// guarded by the payload sequence. Out-of-order deliveries are acknowledged
// and dropped; malformed grant entries are filtered out without blocking the
// valid ones.
func (s *Service) handleOrgAccess(ctx context.Context, event InboundEvent) (Result, error) {
	var payload OrgAccessPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return Result{}, fmt.Errorf("org_access.updated payload: %w", err)
	}
	if payload.SubjectID == "" {
		return Result{}, errors.New("org_access.updated payload missing subject_id")
	}
	if payload.Seq == nil {
		return Result{}, errors.New("org_access.updated payload missing seq")
	}
	seq := *payload.Seq

	ctx = s.logg.WithSubjectID(ctx, payload.SubjectID)

	lastApplied, _, err := s.grants.LastAppliedSeq(ctx, payload.SubjectID)
	if err != nil {
		return Result{}, err
	}
	if seq <= lastApplied {
		return s.ignoreStaleSnapshot(ctx, event, payload.SubjectID, seq, lastApplied), nil
	}

	filtered := s.filterGrants(ctx, event, payload)

	err = s.grants.ApplySnapshot(ctx, payload.SubjectID, seq, filtered)
	if errors.Is(err, grants.ErrStaleSequence) {
		// A concurrent event with a higher sequence won the race between our
		// read above and the guarded write.
		current, _, lookupErr := s.grants.LastAppliedSeq(ctx, payload.SubjectID)
		if lookupErr != nil {
			current = lastApplied
		}
		return s.ignoreStaleSnapshot(ctx, event, payload.SubjectID, seq, current), nil
	}
	if err != nil {
		return Result{}, err
	}

	message := fmt.Sprintf("applied access snapshot seq %d for subject %s: %d grants", seq, payload.SubjectID, len(filtered))
	s.logg.Info(ctx, message)
	return Result{Success: true, Message: message}, nil
}

func (s *Service) ignoreStaleSnapshot(ctx context.Context, event InboundEvent, subjectID string, seq, lastApplied int64) Result {
	s.violations.Record(ctx, ingest.Violation{
		Type:           enums.ViolationSequenceOutOfOrder,
		EventType:      event.EventType,
		IdempotencyKey: event.IdempotencyKey,
		Message:        fmt.Sprintf("stale snapshot seq %d for subject %s, last applied %d", seq, subjectID, lastApplied),
		FieldName:      ingest.StrPtr("seq"),
		FieldValue:     ingest.StrPtr(strconv.FormatInt(seq, 10)),
		ExpectedValue:  ingest.StrPtr(fmt.Sprintf("> %d", lastApplied)),
	})
	return Result{
		Success: true,
		Ignored: true,
		Message: fmt.Sprintf("snapshot seq %d ignored, subject %s already at seq %d", seq, subjectID, lastApplied),
	}
}

// filterGrants drops entries without an organization id and entries explicitly
// marked inactive, then deduplicates by organization id with the last entry
// winning. Each dropped category produces one schema_violation row carrying
// the count.
func (s *Service) filterGrants(ctx context.Context, event InboundEvent, payload OrgAccessPayload) []grants.GrantInput {
	missingOrg := 0
	inactive := 0
	byOrg := map[string]GrantEntry{}
	order := make([]string, 0, len(payload.Grants))

	for _, entry := range payload.Grants {
		if entry.CRMOrganizationID == "" {
			missingOrg++
			continue
		}
		if entry.IsActive != nil && !*entry.IsActive {
			inactive++
			continue
		}
		if _, seen := byOrg[entry.CRMOrganizationID]; !seen {
			order = append(order, entry.CRMOrganizationID)
		}
		byOrg[entry.CRMOrganizationID] = entry
	}

	if missingOrg > 0 {
		s.violations.Record(ctx, ingest.Violation{
			Type:           enums.ViolationSchema,
			EventType:      event.EventType,
			IdempotencyKey: event.IdempotencyKey,
			Message:        fmt.Sprintf("%d grant entries dropped for subject %s: missing crm_organization_id", missingOrg, payload.SubjectID),
			FieldName:      ingest.StrPtr("crm_organization_id"),
			FieldValue:     ingest.StrPtr(""),
			ExpectedValue:  ingest.StrPtr("non-empty organization id"),
		})
	}
	if inactive > 0 {
		s.violations.Record(ctx, ingest.Violation{
			Type:           enums.ViolationSchema,
			EventType:      event.EventType,
			IdempotencyKey: event.IdempotencyKey,
			Message:        fmt.Sprintf("%d inactive grant entries dropped for subject %s: snapshot is active-grants-only", inactive, payload.SubjectID),
			FieldName:      ingest.StrPtr("is_active"),
			FieldValue:     ingest.StrPtr("false"),
			ExpectedValue:  ingest.StrPtr("true or omitted"),
		})
	}

	filtered := make([]grants.GrantInput, 0, len(order))
	for _, orgID := range order {
		entry := byOrg[orgID]
		filtered = append(filtered, grants.GrantInput{
			OrganizationID: entry.CRMOrganizationID,
			RoleInOrg:      entry.Role,
		})
	}
	return filtered
}
