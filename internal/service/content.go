package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"ahloulbait/internal/audit"
	"ahloulbait/internal/models"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
	maxContentLen     = 10000
	maxURLLen         = 500
)

type EventMediaInput struct {
	MediaType string `json:"media_type"`
	MediaURL  string `json:"media_url"`
}

type EventInput struct {
	Title       string            `json:"title"`
	Description *string           `json:"description"`
	EventDate   time.Time         `json:"event_date"`
	Media       []EventMediaInput `json:"media"`
}

type TafsirInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	SurahName   *string `json:"surah_name"`
	SurahNumber *int    `json:"surah_number"`
	Content     *string `json:"content"`
	VideoURL    *string `json:"video_url"`
}

type SiraInput struct {
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	VideoURL     string  `json:"video_url"`
	ThumbnailURL *string `json:"thumbnail_url"`
	Duration     *string `json:"duration"`
}

type FatwaInput struct {
	Question       string  `json:"question"`
	AudioURL       string  `json:"audio_url"`
	Category       *string `json:"category"`
	ScholarName    *string `json:"scholar_name"`
	QuestionerName *string `json:"questioner_name"`
}

func (in EventInput) validate() error {
	if err := checkRequired("title", in.Title, maxTitleLen); err != nil {
		return err
	}
	if err := checkOptional("description", in.Description, maxDescriptionLen); err != nil {
		return err
	}
	if in.EventDate.IsZero() {
		return invalid("event_date", "required")
	}
	for _, m := range in.Media {
		switch m.MediaType {
		case "image":
			if err := checkHTTPSURL("media_url", m.MediaURL); err != nil {
				return err
			}
		case "video":
			if err := checkVideoURL("media_url", m.MediaURL); err != nil {
				return err
			}
		default:
			return invalid("media_type", "must be image or video")
		}
	}
	return nil
}

func (in TafsirInput) validate() error {
	if err := checkRequired("title", in.Title, maxTitleLen); err != nil {
		return err
	}
	if err := checkOptional("description", in.Description, maxDescriptionLen); err != nil {
		return err
	}
	if err := checkOptional("surah_name", in.SurahName, 100); err != nil {
		return err
	}
	if in.SurahNumber != nil && (*in.SurahNumber < 1 || *in.SurahNumber > 114) {
		return invalid("surah_number", "must be between 1 and 114")
	}
	if err := checkOptional("content", in.Content, maxContentLen); err != nil {
		return err
	}
	if in.VideoURL != nil && *in.VideoURL != "" {
		if err := checkVideoURL("video_url", *in.VideoURL); err != nil {
			return err
		}
	}
	return nil
}

func (in SiraInput) validate() error {
	if err := checkRequired("title", in.Title, maxTitleLen); err != nil {
		return err
	}
	if err := checkOptional("description", in.Description, maxDescriptionLen); err != nil {
		return err
	}
	if err := checkVideoURL("video_url", in.VideoURL); err != nil {
		return err
	}
	if in.ThumbnailURL != nil && *in.ThumbnailURL != "" {
		if err := checkHTTPSURL("thumbnail_url", *in.ThumbnailURL); err != nil {
			return err
		}
	}
	if err := checkOptional("duration", in.Duration, 20); err != nil {
		return err
	}
	return nil
}

func (in FatwaInput) validate() error {
	if err := checkRequired("question", in.Question, maxDescriptionLen); err != nil {
		return err
	}
	if err := checkHTTPSURL("audio_url", in.AudioURL); err != nil {
		return err
	}
	if err := checkOptional("category", in.Category, 100); err != nil {
		return err
	}
	if err := checkOptional("scholar_name", in.ScholarName, 100); err != nil {
		return err
	}
	if err := checkOptional("questioner_name", in.QuestionerName, 100); err != nil {
		return err
	}
	return nil
}

func (s *Service) ListEvents(ctx context.Context, limit, offset int) ([]models.Event, error) {
	return s.st.ListEvents(ctx, limit, offset)
}

func (s *Service) GetEvent(ctx context.Context, id string) (models.Event, error) {
	return s.st.GetEvent(ctx, id)
}

func (s *Service) CreateEvent(ctx context.Context, actor models.User, meta audit.RequestMeta, in EventInput) (models.Event, error) {
	if err := in.validate(); err != nil {
		return models.Event{}, err
	}
	e, err := s.st.CreateEvent(ctx, models.Event{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		EventDate:   in.EventDate,
		CreatedBy:   actor.ID,
	})
	if err != nil {
		return models.Event{}, err
	}
	for _, m := range in.Media {
		media, err := s.st.AddEventMedia(ctx, e.ID, m.MediaType, m.MediaURL)
		if err != nil {
			return models.Event{}, err
		}
		e.Media = append(e.Media, media)
	}
	s.recorder.Record(actor.ID, audit.Entry{
		Action:    "CREATE_EVENT",
		TableName: "events",
		RecordID:  e.ID,
		NewData:   audit.Snapshot(e),
	}, meta)
	return e, nil
}

func (s *Service) UpdateEvent(ctx context.Context, actor models.User, meta audit.RequestMeta, id string, in EventInput) (models.Event, error) {
	if err := in.validate(); err != nil {
		return models.Event{}, err
	}
	old, err := s.st.GetEvent(ctx, id)
	if err != nil {
		return models.Event{}, err
	}
	if err := s.st.UpdateEvent(ctx, id, strings.TrimSpace(in.Title), in.Description, in.EventDate); err != nil {
		return models.Event{}, err
	}
	// A media list in the payload replaces the set wholesale; an absent
	// field leaves the existing rows untouched.
	if in.Media != nil {
		if err := s.st.DeleteEventMedia(ctx, id); err != nil {
			return models.Event{}, err
		}
		for _, m := range in.Media {
			if _, err := s.st.AddEventMedia(ctx, id, m.MediaType, m.MediaURL); err != nil {
				return models.Event{}, err
			}
		}
	}
	e, err := s.st.GetEvent(ctx, id)
	if err != nil {
		return models.Event{}, err
	}
	s.recorder.Record(actor.ID, audit.Entry{
		Action:    "UPDATE_EVENT",
		TableName: "events",
		RecordID:  id,
		OldData:   audit.Snapshot(old),
		NewData:   audit.Snapshot(e),
	}, meta)
	return e, nil
}

// DeleteEvent snapshots the row before removal; the audit write runs in the
// background and cannot fail the delete.
func (s *Service) DeleteEvent(ctx context.Context, actor models.User, meta audit.RequestMeta, id string) error {
	old, err := s.st.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if err := s.st.DeleteEvent(ctx, id); err != nil {
		return err
	}
	s.recorder.Record(actor.ID, audit.Entry{
		Action:    "DELETE_EVENT",
		TableName: "events",
		RecordID:  id,
		OldData:   audit.Snapshot(old),
	}, meta)
	return nil
}

func (s *Service) ListTafsir(ctx context.Context, limit, offset int) ([]models.Tafsir, error) {
	return s.st.ListTafsir(ctx, limit, offset)
}

func (s *Service) GetTafsir(ctx context.Context, id string) (models.Tafsir, error) {
	return s.st.GetTafsir(ctx, id)
}

func (s *Service) CreateTafsir(ctx context.Context, actor models.User, meta audit.RequestMeta, in TafsirInput) (models.Tafsir, error) {
	if err := in.validate(); err != nil {
		return models.Tafsir{}, err
	}
	createdBy := actor.ID
	t, err := s.st.CreateTafsir(ctx, models.Tafsir{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		SurahName:   in.SurahName,
		SurahNumber: in.SurahNumber,
		Content:     in.Content,
		VideoURL:    in.VideoURL,
		CreatedBy:   &createdBy,
	})
	if err != nil {
		return models.Tafsir{}, err
	}
	s.recorder.Record(actor.ID, audit.Entry{
		Action:    "CREATE_TAFSIR",
		TableName: "tafsir",
		RecordID:  t.ID,
		NewData:   audit.Snapshot(t),
	}, meta)
	return t, nil
}

func (s *Service) UpdateTafsir(ctx context.Context, actor models.User, meta audit.RequestMeta, id string, in TafsirInput) (models.Tafsir, error) {
	if err := in.validate(); err != nil {
		return models.Tafsir{}, err
	}
	old, err := s.st.GetTafsir(ctx, id)
	if err != nil {
		return models.Tafsir{}, err
	}
	next := old
	next.Title = strings.TrimSpace(in.Title)
	next.Description = in.Description
	next.SurahName = in.SurahName
	next.SurahNumber = in.SurahNumber
	next.Content = in.Content
	next.VideoURL = in.VideoURL
	if err := s.st.UpdateTafsir(ctx, next); err != nil {
		return models.Tafsir{}, err
	}
	s.recorder.Record(actor.ID, audit.Entry{
		Action:    "UPDATE_TAFSIR",
		TableName: "tafsir",
		RecordID:  id,
		OldData:   audit.Snapshot(old),
		NewData:   audit.Snapshot(next),
	}, meta)
	return next, nil
}

func (s *Service) DeleteTafsir(ctx context.Context, actor models.User, meta audit.RequestMeta, id string) error {
	old, err := s.st.GetTafsir(ctx, id)
	if err != nil {
		return err
	}
	if err := s.st.DeleteTafsir(ctx, id); err != nil {
		return err
	}
	s.recorder.Record(actor.ID, audit.Entry{
		Action:    "DELETE_TAFSIR",
		TableName: "tafsir",
		RecordID:  id,
		OldData:   audit.Snapshot(old),
	}, meta)
	return nil
}

func (s *Service) ListSira(ctx context.Context, limit, offset int) ([]models.Sira, error) {
	return s.st.ListSira(ctx, limit, offset)
}

func (s *Service) GetSira(ctx context.Context, id string) (models.Sira, error) {
	return s.st.GetSira(ctx, id)
}

func (s *Service) CreateSira(ctx context.Context, actor models.User, meta audit.RequestMeta, in SiraInput) (models.Sira, error) {
	if err := in.validate(); err != nil {
		return models.Sira{}, err
	}
	createdBy := actor.ID
	v, err := s.st.CreateSira(ctx, models.Sira{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		VideoURL:     in.VideoURL,
		ThumbnailURL: in.ThumbnailURL,
		Duration:     in.Duration,
		CreatedBy:    &createdBy,
	})
	if err != nil {
		return models.Sira{}, err
	}
	s.recorder.Record(actor.ID, audit.Entry{
		Action:    "CREATE_SIRA",
		TableName: "sira",
		RecordID:  v.ID,
		NewData:   audit.Snapshot(v),
	}, meta)
	return v, nil
}

func (s *Service) UpdateSira(ctx context.Context, actor models.User, meta audit.RequestMeta, id string, in SiraInput) (models.Sira, error) {
	if err := in.validate(); err != nil {
		return models.Sira{}, err
	}
	old, err := s.st.GetSira(ctx, id)
	if err != nil {
		return models.Sira{}, err
	}
	next := old
	next.Title = strings.TrimSpace(in.Title)
	next.Description = in.Description
	next.VideoURL = in.VideoURL
	next.ThumbnailURL = in.ThumbnailURL
	next.Duration = in.Duration
	if err := s.st.UpdateSira(ctx, next); err != nil {
		return models.Sira{}, err
	}
	s.recorder.Record(actor.ID, audit.Entry{
		Action:    "UPDATE_SIRA",
		TableName: "sira",
		RecordID:  id,
		OldData:   audit.Snapshot(old),
		NewData:   audit.Snapshot(next),
	}, meta)
	return next, nil
}

func (s *Service) DeleteSira(ctx context.Context, actor models.User, meta audit.RequestMeta, id string) error {
	old, err := s.st.GetSira(ctx, id)
	if err != nil {
		return err
	}
	if err := s.st.DeleteSira(ctx, id); err != nil {
		return err
	}
	s.recorder.Record(actor.ID, audit.Entry{
		Action:    "DELETE_SIRA",
		TableName: "sira",
		RecordID:  id,
		OldData:   audit.Snapshot(old),
	}, meta)
	return nil
}

func (s *Service) ListFatwas(ctx context.Context, limit, offset int) ([]models.Fatwa, error) {
	return s.st.ListFatwas(ctx, limit, offset)
}

func (s *Service) GetFatwa(ctx context.Context, id string) (models.Fatwa, error) {
	return s.st.GetFatwa(ctx, id)
}

func (s *Service) CreateFatwa(ctx context.Context, actor models.User, meta audit.RequestMeta, in FatwaInput) (models.Fatwa, error) {
	if err := in.validate(); err != nil {
		return models.Fatwa{}, err
	}
	createdBy := actor.ID
	f, err := s.st.CreateFatwa(ctx, models.Fatwa{
		Question:       strings.TrimSpace(in.Question),
		AudioURL:       in.AudioURL,
		Category:       in.Category,
		ScholarName:    in.ScholarName,
		QuestionerName: in.QuestionerName,
		CreatedBy:      &createdBy,
	})
	if err != nil {
		return models.Fatwa{}, err
	}
	s.recorder.Record(actor.ID, audit.Entry{
		Action:    "CREATE_FATWA",
		TableName: "fatwas",
		RecordID:  f.ID,
		NewData:   audit.Snapshot(f),
	}, meta)
	return f, nil
}

func (s *Service) UpdateFatwa(ctx context.Context, actor models.User, meta audit.RequestMeta, id string, in FatwaInput) (models.Fatwa, error) {
	if err := in.validate(); err != nil {
		return models.Fatwa{}, err
	}
	old, err := s.st.GetFatwa(ctx, id)
	if err != nil {
		return models.Fatwa{}, err
	}
	next := old
	next.Question = strings.TrimSpace(in.Question)
	next.AudioURL = in.AudioURL
	next.Category = in.Category
	next.ScholarName = in.ScholarName
	next.QuestionerName = in.QuestionerName
	if err := s.st.UpdateFatwa(ctx, next); err != nil {
		return models.Fatwa{}, err
	}
	s.recorder.Record(actor.ID, audit.Entry{
		Action:    "UPDATE_FATWA",
		TableName: "fatwas",
		RecordID:  id,
		OldData:   audit.Snapshot(old),
		NewData:   audit.Snapshot(next),
	}, meta)
	return next, nil
}

func (s *Service) DeleteFatwa(ctx context.Context, actor models.User, meta audit.RequestMeta, id string) error {
	old, err := s.st.GetFatwa(ctx, id)
	if err != nil {
		return err
	}
	if err := s.st.DeleteFatwa(ctx, id); err != nil {
		return err
	}
	s.recorder.Record(actor.ID, audit.Entry{
		Action:    "DELETE_FATWA",
		TableName: "fatwas",
		RecordID:  id,
		OldData:   audit.Snapshot(old),
	}, meta)
	return nil
}

func checkRequired(field, v string, max int) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return invalid(field, "required")
	}
	if len(v) > max {
		return invalid(field, "too long")
	}
	return nil
}

func checkOptional(field string, v *string, max int) error {
	if v == nil {
		return nil
	}
	if len(*v) > max {
		return invalid(field, "too long")
	}
	return nil
}

func checkHTTPSURL(field, raw string) error {
	if raw == "" || len(raw) > maxURLLen {
		return invalid(field, "must be an https URL")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return invalid(field, "must be an https URL")
	}
	return nil
}

// checkVideoURL restricts video links to YouTube, matching what the site
// embeds.
func checkVideoURL(field, raw string) error {
	if err := checkHTTPSURL(field, raw); err != nil {
		return err
	}
	u, _ := url.Parse(raw)
	host := strings.ToLower(u.Hostname())
	switch host {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "youtu.be":
		return nil
	}
	return invalid(field, "must be a YouTube URL")
}
