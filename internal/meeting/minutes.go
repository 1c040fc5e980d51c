package meeting

import (
	"context"
	"strings"

	"portal/internal/apperr"
	"portal/internal/identity"
	"portal/internal/policy"
	"portal/internal/validate"
)

// MinutesInput is the payload of CreateMinutes.
type MinutesInput struct {
	MeetingID   *int64       `json:"meetingId" validate:"required"`
	Content     string       `json:"content" validate:"notblank"`
	Attachments []Attachment `json:"attachments"`
}

// MinutesPatch changes content and/or replaces the attachment list.
type MinutesPatch struct {
	Content     *string       `json:"content"`
	Attachments *[]Attachment `json:"attachments"`
}

// CreateMinutes records minutes for an existing meeting. Any number of
// minutes may exist per meeting, whatever its status.
func (s *Service) CreateMinutes(ctx context.Context, actor identity.Actor, in MinutesInput) (Minutes, error) {
	if err := policy.CanRecordMinutes(actor); err != nil {
		return Minutes{}, err
	}
	if err := validate.Struct(in); err != nil {
		return Minutes{}, err
	}
	if _, err := s.store.GetMeeting(ctx, *in.MeetingID); err != nil {
		return Minutes{}, err
	}
	atts := in.Attachments
	if atts == nil {
		atts = []Attachment{}
	}
	return s.store.CreateMinutes(ctx, Minutes{
		MeetingID:   *in.MeetingID,
		Content:     in.Content,
		Attachments: atts,
		CreatedBy:   actor.ID,
	})
}

// ListMinutes returns the minutes of a meeting the actor can see.
func (s *Service) ListMinutes(ctx context.Context, actor identity.Actor, meetingID int64) ([]Minutes, error) {
	if _, err := s.GetMeeting(ctx, actor, meetingID); err != nil {
		return nil, err
	}
	return s.store.ListMinutes(ctx, meetingID)
}

// GetMinutes returns one minutes record if its meeting is visible.
func (s *Service) GetMinutes(ctx context.Context, actor identity.Actor, id int64) (Minutes, error) {
	m, err := s.store.GetMinutes(ctx, id)
	if err != nil {
		return Minutes{}, err
	}
	if _, err := s.GetMeeting(ctx, actor, m.MeetingID); err != nil {
		return Minutes{}, apperr.NotFound("minutes", id)
	}
	return m, nil
}

// UpdateMinutes applies a partial change and stamps the editor.
func (s *Service) UpdateMinutes(ctx context.Context, actor identity.Actor, id int64, in MinutesPatch) (Minutes, error) {
	if err := policy.CanRecordMinutes(actor); err != nil {
		return Minutes{}, err
	}
	m, err := s.store.GetMinutes(ctx, id)
	if err != nil {
		return Minutes{}, err
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return Minutes{}, apperr.Missing("content")
		}
		m.Content = *in.Content
	}
	if in.Attachments != nil {
		m.Attachments = *in.Attachments
		if m.Attachments == nil {
			m.Attachments = []Attachment{}
		}
	}
	editor := actor.ID
	m.UpdatedBy = &editor
	return s.store.UpdateMinutes(ctx, m)
}

// DeleteMinutes removes one minutes record.
func (s *Service) DeleteMinutes(ctx context.Context, actor identity.Actor, id int64) error {
	if err := policy.CanRecordMinutes(actor); err != nil {
		return err
	}
	if _, err := s.store.GetMinutes(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteMinutes(ctx, id)
}

// AttachToMinutes uploads a file and appends it to the minutes' attachments.
func (s *Service) AttachToMinutes(ctx context.Context, actor identity.Actor, id int64, u Upload) (Minutes, error) {
	if err := policy.CanRecordMinutes(actor); err != nil {
		return Minutes{}, err
	}
	if s.files == nil {
		return Minutes{}, apperr.InvalidState("attachment storage is not configured")
	}
	if strings.TrimSpace(u.Name) == "" || u.Body == nil {
		return Minutes{}, apperr.Missing("file")
	}
	m, err := s.store.GetMinutes(ctx, id)
	if err != nil {
		return Minutes{}, err
	}
	att, err := s.files.Upload(ctx, u)
	if err != nil {
		return Minutes{}, err
	}
	if att.UploadedAt.IsZero() {
		att.UploadedAt = s.now().UTC()
	}
	m.Attachments = append(m.Attachments, att)
	editor := actor.ID
	m.UpdatedBy = &editor
	s.log.Info().Int64("minutes_id", id).Str("file", att.Name).Msg("attachment added")
	return s.store.UpdateMinutes(ctx, m)
}
