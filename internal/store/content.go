package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"ahloulbait/internal/models"
)

func (s *Store) CreateEvent(ctx context.Context, e models.Event) (models.Event, error) {
	now := time.Now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events(id,title,description,event_date,created_by,created_at,updated_at) VALUES(?,?,?,?,?,?,?)`,
		e.ID, e.Title, e.Description, e.EventDate, e.CreatedBy, e.CreatedAt, e.UpdatedAt,
	)
	return e, err
}

func (s *Store) UpdateEvent(ctx context.Context, id, title string, description *string, eventDate time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET title=?, description=?, event_date=?, updated_at=? WHERE id=?`,
		title, description, eventDate, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

func (s *Store) GetEvent(ctx context.Context, id string) (models.Event, error) {
	var e models.Event
	var description sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id,title,description,event_date,created_by,created_at,updated_at FROM events WHERE id=?`, id,
	).Scan(&e.ID, &e.Title, &description, &e.EventDate, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Event{}, ErrNotFound
	}
	if err != nil {
		return models.Event{}, err
	}
	if description.Valid {
		v := description.String
		e.Description = &v
	}
	media, err := s.ListEventMedia(ctx, e.ID)
	if err != nil {
		return models.Event{}, err
	}
	e.Media = media
	return e, nil
}

func (s *Store) DeleteEventMedia(ctx context.Context, eventID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM event_media WHERE event_id=?`, eventID)
	return err
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if err := s.DeleteEventMedia(ctx, id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id=?`, id)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

func (s *Store) ListEvents(ctx context.Context, limit, offset int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,title,description,event_date,created_by,created_at,updated_at FROM events ORDER BY event_date DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Event, 0, limit)
	for rows.Next() {
		var e models.Event
		var description sql.NullString
		if err := rows.Scan(&e.ID, &e.Title, &description, &e.EventDate, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if description.Valid {
			v := description.String
			e.Description = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) AddEventMedia(ctx context.Context, eventID, mediaType, mediaURL string) (models.EventMedia, error) {
	m := models.EventMedia{ID: uuid.NewString(), EventID: eventID, MediaType: mediaType, MediaURL: mediaURL, CreatedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event_media(id,event_id,media_type,media_url,created_at) VALUES(?,?,?,?,?)`,
		m.ID, m.EventID, m.MediaType, m.MediaURL, m.CreatedAt,
	)
	return m, err
}

func (s *Store) ListEventMedia(ctx context.Context, eventID string) ([]models.EventMedia, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,event_id,media_type,media_url,created_at FROM event_media WHERE event_id=? ORDER BY created_at ASC`, eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.EventMedia
	for rows.Next() {
		var m models.EventMedia
		if err := rows.Scan(&m.ID, &m.EventID, &m.MediaType, &m.MediaURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) CreateTafsir(ctx context.Context, t models.Tafsir) (models.Tafsir, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tafsir(id,title,description,surah_name,surah_number,content,video_url,created_by,created_at) VALUES(?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, t.Description, t.SurahName, t.SurahNumber, t.Content, t.VideoURL, t.CreatedBy, t.CreatedAt,
	)
	return t, err
}

func (s *Store) GetTafsir(ctx context.Context, id string) (models.Tafsir, error) {
	var t models.Tafsir
	var description, surahName, content, videoURL, createdBy sql.NullString
	var surahNumber sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id,title,description,surah_name,surah_number,content,video_url,created_by,created_at FROM tafsir WHERE id=?`, id,
	).Scan(&t.ID, &t.Title, &description, &surahName, &surahNumber, &content, &videoURL, &createdBy, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Tafsir{}, ErrNotFound
	}
	if err != nil {
		return models.Tafsir{}, err
	}
	t.Description = nullStr(description)
	t.SurahName = nullStr(surahName)
	t.Content = nullStr(content)
	t.VideoURL = nullStr(videoURL)
	t.CreatedBy = nullStr(createdBy)
	if surahNumber.Valid {
		n := int(surahNumber.Int64)
		t.SurahNumber = &n
	}
	return t, nil
}

func (s *Store) UpdateTafsir(ctx context.Context, t models.Tafsir) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tafsir SET title=?, description=?, surah_name=?, surah_number=?, content=?, video_url=? WHERE id=?`,
		t.Title, t.Description, t.SurahName, t.SurahNumber, t.Content, t.VideoURL, t.ID,
	)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

func (s *Store) DeleteTafsir(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tafsir WHERE id=?`, id)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

func (s *Store) ListTafsir(ctx context.Context, limit, offset int) ([]models.Tafsir, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,title,description,surah_name,surah_number,content,video_url,created_by,created_at FROM tafsir ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Tafsir, 0, limit)
	for rows.Next() {
		var t models.Tafsir
		var description, surahName, content, videoURL, createdBy sql.NullString
		var surahNumber sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Title, &description, &surahName, &surahNumber, &content, &videoURL, &createdBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Description = nullStr(description)
		t.SurahName = nullStr(surahName)
		t.Content = nullStr(content)
		t.VideoURL = nullStr(videoURL)
		t.CreatedBy = nullStr(createdBy)
		if surahNumber.Valid {
			n := int(surahNumber.Int64)
			t.SurahNumber = &n
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateSira(ctx context.Context, v models.Sira) (models.Sira, error) {
	v.ID = uuid.NewString()
	v.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sira(id,title,description,video_url,thumbnail_url,duration,created_by,created_at) VALUES(?,?,?,?,?,?,?,?)`,
		v.ID, v.Title, v.Description, v.VideoURL, v.ThumbnailURL, v.Duration, v.CreatedBy, v.CreatedAt,
	)
	return v, err
}

func (s *Store) GetSira(ctx context.Context, id string) (models.Sira, error) {
	var v models.Sira
	var description, thumbnailURL, duration, createdBy sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id,title,description,video_url,thumbnail_url,duration,created_by,created_at FROM sira WHERE id=?`, id,
	).Scan(&v.ID, &v.Title, &description, &v.VideoURL, &thumbnailURL, &duration, &createdBy, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Sira{}, ErrNotFound
	}
	if err != nil {
		return models.Sira{}, err
	}
	v.Description = nullStr(description)
	v.ThumbnailURL = nullStr(thumbnailURL)
	v.Duration = nullStr(duration)
	v.CreatedBy = nullStr(createdBy)
	return v, nil
}

func (s *Store) UpdateSira(ctx context.Context, v models.Sira) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sira SET title=?, description=?, video_url=?, thumbnail_url=?, duration=? WHERE id=?`,
		v.Title, v.Description, v.VideoURL, v.ThumbnailURL, v.Duration, v.ID,
	)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

func (s *Store) DeleteSira(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sira WHERE id=?`, id)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

func (s *Store) ListSira(ctx context.Context, limit, offset int) ([]models.Sira, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,title,description,video_url,thumbnail_url,duration,created_by,created_at FROM sira ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Sira, 0, limit)
	for rows.Next() {
		var v models.Sira
		var description, thumbnailURL, duration, createdBy sql.NullString
		if err := rows.Scan(&v.ID, &v.Title, &description, &v.VideoURL, &thumbnailURL, &duration, &createdBy, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Description = nullStr(description)
		v.ThumbnailURL = nullStr(thumbnailURL)
		v.Duration = nullStr(duration)
		v.CreatedBy = nullStr(createdBy)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) CreateFatwa(ctx context.Context, f models.Fatwa) (models.Fatwa, error) {
	f.ID = uuid.NewString()
	f.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fatwas(id,question,audio_url,category,scholar_name,questioner_name,created_by,created_at) VALUES(?,?,?,?,?,?,?,?)`,
		f.ID, f.Question, f.AudioURL, f.Category, f.ScholarName, f.QuestionerName, f.CreatedBy, f.CreatedAt,
	)
	return f, err
}

func (s *Store) GetFatwa(ctx context.Context, id string) (models.Fatwa, error) {
	var f models.Fatwa
	var category, scholarName, questionerName, createdBy sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id,question,audio_url,category,scholar_name,questioner_name,created_by,created_at FROM fatwas WHERE id=?`, id,
	).Scan(&f.ID, &f.Question, &f.AudioURL, &category, &scholarName, &questionerName, &createdBy, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Fatwa{}, ErrNotFound
	}
	if err != nil {
		return models.Fatwa{}, err
	}
	f.Category = nullStr(category)
	f.ScholarName = nullStr(scholarName)
	f.QuestionerName = nullStr(questionerName)
	f.CreatedBy = nullStr(createdBy)
	return f, nil
}

func (s *Store) UpdateFatwa(ctx context.Context, f models.Fatwa) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE fatwas SET question=?, audio_url=?, category=?, scholar_name=?, questioner_name=? WHERE id=?`,
		f.Question, f.AudioURL, f.Category, f.ScholarName, f.QuestionerName, f.ID,
	)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

func (s *Store) DeleteFatwa(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM fatwas WHERE id=?`, id)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

func (s *Store) ListFatwas(ctx context.Context, limit, offset int) ([]models.Fatwa, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,question,audio_url,category,scholar_name,questioner_name,created_by,created_at FROM fatwas ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Fatwa, 0, limit)
	for rows.Next() {
		var f models.Fatwa
		var category, scholarName, questionerName, createdBy sql.NullString
		if err := rows.Scan(&f.ID, &f.Question, &f.AudioURL, &category, &scholarName, &questionerName, &createdBy, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Category = nullStr(category)
		f.ScholarName = nullStr(scholarName)
		f.QuestionerName = nullStr(questionerName)
		f.CreatedBy = nullStr(createdBy)
		out = append(out, f)
	}
	return out, rows.Err()
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func oneRowOrNotFound(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
