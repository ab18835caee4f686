package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"printshop-backend/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memDraftStore 不過期的記憶體草稿
type memDraftStore struct {
	mu     sync.Mutex
	drafts map[string]model.DraftOrder
}

func newMemDraftStore() *memDraftStore {
	return &memDraftStore{drafts: map[string]model.DraftOrder{}}
}

func cloneDraft(d model.DraftOrder) *model.DraftOrder {
	d.Images = append([]string{}, d.Images...)
	d.Pieces.Details = append([]model.PieceLine{}, d.Pieces.Details...)
	return &d
}

func (s *memDraftStore) Create(_ context.Context, draft *model.DraftOrder, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[draft.ID] = *cloneDraft(*draft)
	return nil
}

func (s *memDraftStore) Get(_ context.Context, id string) (*model.DraftOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return cloneDraft(d), nil
}

func (s *memDraftStore) Update(_ context.Context, id string, _ time.Duration, fn func(*model.DraftOrder) error) (*model.DraftOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	working := cloneDraft(d)
	if err := fn(working); err != nil {
		return nil, err
	}
	s.drafts[id] = *cloneDraft(*working)
	return working, nil
}

func (s *memDraftStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[id]; !ok {
		return ErrDraftNotFound
	}
	delete(s.drafts, id)
	return nil
}

// fakeUploader 檔名含 fail 時上傳失敗
type fakeUploader struct {
	uploaded []string
	deleted  []string
}

func (u *fakeUploader) upload(kind, draftID string, file UploadFile) (*FileUploadResult, error) {
	if strings.Contains(file.Filename, "fail") {
		return nil, errors.New("disk full")
	}
	url := "http://localhost/uploads/" + kind + "/" + draftID + "/" + file.Filename
	u.uploaded = append(u.uploaded, url)
	return &FileUploadResult{URL: url}, nil
}

func (u *fakeUploader) UploadImage(_ context.Context, draftID string, file UploadFile) (*FileUploadResult, error) {
	return u.upload("images", draftID, file)
}

func (u *fakeUploader) UploadAudio(_ context.Context, draftID string, file UploadFile) (*FileUploadResult, error) {
	return u.upload("audio", draftID, file)
}

func (u *fakeUploader) DeleteByURL(_ context.Context, url string) error {
	u.deleted = append(u.deleted, url)
	return nil
}

type fakeCreator struct {
	inputs []CreateOrderInput
	err    error
}

func (c *fakeCreator) CreateOrder(_ context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	c.inputs = append(c.inputs, in)
	if c.err != nil {
		return nil, c.err
	}
	return &CreateOrderResult{Order: model.Order{ID: "aB3xY9k"}, Redirect: OrdersRedirect}, nil
}

type draftFixture struct {
	store    *memDraftStore
	uploader *fakeUploader
	creator  *fakeCreator
	service  *DraftService
	draft    *model.DraftOrder
}

func newDraftFixture(t *testing.T) *draftFixture {
	t.Helper()
	f := &draftFixture{
		store:    newMemDraftStore(),
		uploader: &fakeUploader{},
		creator:  &fakeCreator{},
	}
	customers := staticCustomers{
		{ID: "c1", Name: "Asha", Phone: "9876543210", CountryCode: "+91"},
		{ID: "c2", Name: "Natasha", Phone: "5550100", CountryCode: "+1"},
	}
	f.service = NewDraftService(testLogger, f.store, f.uploader, customers, f.creator, time.Hour, "+91", time.UTC)
	f.service.now = func() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC) }

	draft, err := f.service.CreateDraft(context.Background(), "manager@example.com")
	require.NoError(t, err)
	f.draft = draft
	return f
}

func files(names ...string) []UploadFile {
	out := make([]UploadFile, len(names))
	for i, n := range names {
		out[i] = UploadFile{Reader: strings.NewReader("x"), Filename: n, Size: 1}
	}
	return out
}

func TestCreateDraftDefaults(t *testing.T) {
	f := newDraftFixture(t)
	assert.Equal(t, "+91", f.draft.CountryCode)
	assert.Equal(t, "2026-10-17", f.draft.DeadlineRaw)
	assert.Equal(t, 0, f.draft.Pieces.TotalQuantity)
	assert.Empty(t, f.draft.Images)
	assert.Equal(t, "manager@example.com", f.draft.CreatedBy)
}

func TestDraftPieceLinesKeepTotal(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()
	id := f.draft.ID

	d, err := f.service.AddPieceLine(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Pieces.TotalQuantity)

	d, err = f.service.AddPieceLine(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Pieces.TotalQuantity)

	qty := 5
	offset := model.PieceTypeOffsetPrinting
	d, err = f.service.UpdatePieceLine(ctx, id, 1, PieceLineUpdate{Type: &offset, Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 6, d.Pieces.TotalQuantity)
	assert.Equal(t, offset, d.Pieces.Details[1].Type)

	d, err = f.service.RemovePieceLine(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, d.Pieces.TotalQuantity)
	assert.Len(t, d.Pieces.Details, 1)

	t.Run("非法更新", func(t *testing.T) {
		zero := 0
		_, err := f.service.UpdatePieceLine(ctx, id, 0, PieceLineUpdate{Quantity: &zero})
		assert.True(t, errors.Is(err, ErrInvalidPieceLine))

		vinyl := model.PieceType("Vinyl")
		_, err = f.service.UpdatePieceLine(ctx, id, 0, PieceLineUpdate{Type: &vinyl})
		assert.True(t, errors.Is(err, ErrInvalidPieceLine))

		_, err = f.service.RemovePieceLine(ctx, id, 3)
		assert.True(t, errors.Is(err, ErrInvalidPieceIndex))

		current, err := f.service.GetDraft(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 5, current.Pieces.TotalQuantity)
	})
}

func TestDraftCustomerFields(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()
	id := f.draft.ID

	name := "asha"
	_, err := f.service.UpdateCustomer(ctx, id, CustomerFields{Name: &name})
	require.NoError(t, err)

	suggestions, err := f.service.SuggestCustomers(ctx, id)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	d, err := f.service.SelectCustomer(ctx, id, "c2")
	require.NoError(t, err)
	assert.Equal(t, "Natasha", d.CustomerName)
	assert.Equal(t, "5550100", d.Phone)
	assert.Equal(t, "+1", d.CountryCode)

	_, err = f.service.SelectCustomer(ctx, id, "missing")
	assert.True(t, errors.Is(err, ErrCustomerNotFound))
}

func TestDraftUploads(t *testing.T) {
	t.Run("圖片全部成功才加入", func(t *testing.T) {
		f := newDraftFixture(t)
		d, err := f.service.UploadImages(context.Background(), f.draft.ID, files("a.png", "b.jpg"))
		require.NoError(t, err)
		assert.Len(t, d.Images, 2)
	})

	t.Run("任一圖片失敗時草稿不變並清除已上傳檔案", func(t *testing.T) {
		f := newDraftFixture(t)
		_, err := f.service.UploadImages(context.Background(), f.draft.ID, files("a.png", "fail.png"))
		var ue *UploadError
		require.True(t, errors.As(err, &ue))
		assert.Equal(t, "image", ue.Kind)

		d, err := f.service.GetDraft(context.Background(), f.draft.ID)
		require.NoError(t, err)
		assert.Empty(t, d.Images)
		assert.Equal(t, f.uploader.uploaded, f.uploader.deleted)
	})

	t.Run("移除圖片", func(t *testing.T) {
		f := newDraftFixture(t)
		ctx := context.Background()
		_, err := f.service.UploadImages(ctx, f.draft.ID, files("a.png", "b.png"))
		require.NoError(t, err)

		d, err := f.service.RemoveImage(ctx, f.draft.ID, 0)
		require.NoError(t, err)
		require.Len(t, d.Images, 1)
		assert.True(t, strings.HasSuffix(d.Images[0], "b.png"))
		assert.Len(t, f.uploader.deleted, 1)

		_, err = f.service.RemoveImage(ctx, f.draft.ID, 5)
		assert.True(t, errors.Is(err, ErrInvalidImageIndex))
	})

	t.Run("語音取代與清除", func(t *testing.T) {
		f := newDraftFixture(t)
		ctx := context.Background()
		first, err := f.service.UploadAudio(ctx, f.draft.ID, files("one.m4a")[0])
		require.NoError(t, err)
		second, err := f.service.UploadAudio(ctx, f.draft.ID, files("two.m4a")[0])
		require.NoError(t, err)
		assert.NotEqual(t, first.AudioLink, second.AudioLink)
		assert.Equal(t, []string{first.AudioLink}, f.uploader.deleted)

		_, err = f.service.UploadAudio(ctx, f.draft.ID, files("fail.m4a")[0])
		require.Error(t, err)
		current, err := f.service.GetDraft(ctx, f.draft.ID)
		require.NoError(t, err)
		assert.Equal(t, second.AudioLink, current.AudioLink)

		cleared, err := f.service.ClearAudio(ctx, f.draft.ID)
		require.NoError(t, err)
		assert.Empty(t, cleared.AudioLink)
	})
}

func TestDraftDeadline(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()

	d, err := f.service.SetDeadline(ctx, f.draft.ID, "2026-11-01")
	require.NoError(t, err)
	assert.Equal(t, "2026-11-01", d.DeadlineRaw)

	_, err = f.service.SetDeadline(ctx, f.draft.ID, "tomorrow")
	assert.True(t, errors.Is(err, ErrInvalidDeadline))

	d, err = f.service.SetDeadline(ctx, f.draft.ID, "")
	require.NoError(t, err)
	assert.Empty(t, d.DeadlineRaw)
}

func TestDraftSubmit(t *testing.T) {
	t.Run("成功後刪除草稿", func(t *testing.T) {
		f := newDraftFixture(t)
		ctx := context.Background()
		name := "Asha"
		phone := "9876543210"
		_, err := f.service.UpdateCustomer(ctx, f.draft.ID, CustomerFields{Name: &name, Phone: &phone})
		require.NoError(t, err)
		_, err = f.service.AddPieceLine(ctx, f.draft.ID)
		require.NoError(t, err)

		result, err := f.service.Submit(ctx, f.draft.ID)
		require.NoError(t, err)
		assert.Equal(t, OrdersRedirect, result.Redirect)

		require.Len(t, f.creator.inputs, 1)
		in := f.creator.inputs[0]
		assert.Equal(t, "Asha", in.CustomerName)
		assert.Equal(t, "+91", in.CountryCode)
		assert.Len(t, in.Pieces, 1)

		_, err = f.service.GetDraft(ctx, f.draft.ID)
		assert.True(t, errors.Is(err, ErrDraftNotFound))
	})

	t.Run("失敗時保留草稿", func(t *testing.T) {
		f := newDraftFixture(t)
		f.creator.err = &ValidationError{Fields: map[string]string{"CustomerName": "required"}}

		_, err := f.service.Submit(context.Background(), f.draft.ID)
		assert.True(t, errors.Is(err, ErrInvalidOrder))
		_, err = f.service.GetDraft(context.Background(), f.draft.ID)
		assert.NoError(t, err)
	})
}

func TestDraftDiscard(t *testing.T) {
	f := newDraftFixture(t)
	ctx := context.Background()
	_, err := f.service.UploadImages(ctx, f.draft.ID, files("a.png"))
	require.NoError(t, err)
	_, err = f.service.UploadAudio(ctx, f.draft.ID, files("memo.m4a")[0])
	require.NoError(t, err)

	require.NoError(t, f.service.Discard(ctx, f.draft.ID))
	assert.ElementsMatch(t, f.uploader.uploaded, f.uploader.deleted)

	assert.True(t, errors.Is(f.service.Discard(ctx, f.draft.ID), ErrDraftNotFound))
}
