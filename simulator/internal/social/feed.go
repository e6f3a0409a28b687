// Package social samples the social feed and classifies posts into threat
// flags.
package social

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

// DefaultPool is the built-in post pool around the Wagah crossing.
func DefaultPool() []models.Post {
	return []models.Post{
		{PostID: "tw_1", Source: "twitter", User: "protest_tracker", RawLocation: "Wagah Border", Lang: "en",
			Text: "Big convoy protest planned near Wagah next week. Going to be huge! #FarmersProtest"},
		{PostID: "tg_1", Source: "telegram", User: "anon_smuggler", RawLocation: "Amritsar", Lang: "en",
			Text: "Need to get a special package across. Standard routes are too hot. Any ideas for the Wagah area?"},
		{PostID: "rd_1", Source: "reddit", User: "curious_cat", RawLocation: "Lahore", Lang: "en",
			Text: "Does anyone know if the new drone surveillance at the border can be bypassed easily?"},
		{PostID: "nw_1", Source: "news", User: "border_news", RawLocation: "Wagah, Punjab", Lang: "en",
			Text: "Authorities increase security measures at the Wagah border crossing ahead of the holiday season."},
		{PostID: "pa_1", Source: "twitter", User: "punjabi_activist", RawLocation: "Tarn Taran", Lang: "pa",
			Text: "ਸਰਹੱਦ 'ਤੇ ਵੱਡਾ ਇਕੱਠ ਹੋਣ ਦੀ ਸੰਭਾਵਨਾ ਹੈ। ਸਾਰੇ ਤਿਆਰ ਰਹੋ।"},
		{PostID: "hi_1", Source: "twitter", User: "kisan_union_delhi", RawLocation: "Wagah", Lang: "hi",
			Text: "वाघा पर घेराव की योजना बन रही है। सरकार को हमारी बात सुननी होगी।"},
	}
}

// Feed samples posts from a fixed pool. The faker is its only randomness.
type Feed struct {
	pool      []models.Post
	faker     *gofakeit.Faker
	sampleMax int
	now       func() time.Time
}

func NewFeed(pool []models.Post, faker *gofakeit.Faker, sampleMax int) *Feed {
	if sampleMax <= 0 {
		sampleMax = 3
	}
	if len(pool) == 0 {
		pool = DefaultPool()
	}
	return &Feed{pool: pool, faker: faker, sampleMax: sampleMax, now: time.Now}
}

// Poll returns between 1 and sampleMax distinct posts (bounded by the pool),
// each with a fresh id and timestamp.
func (f *Feed) Poll() []models.Post {
	n := f.faker.Number(1, f.sampleMax)
	if n > len(f.pool) {
		n = len(f.pool)
	}

	idx := make([]int, len(f.pool))
	for i := range idx {
		idx[i] = i
	}
	for i := len(idx) - 1; i > 0; i-- {
		j := f.faker.Number(0, i)
		idx[i], idx[j] = idx[j], idx[i]
	}

	now := f.now().UTC()
	out := make([]models.Post, 0, n)
	for _, i := range idx[:n] {
		p := f.pool[i]
		prefix, _, _ := strings.Cut(p.PostID, "_")
		p.PostID = fmt.Sprintf("%s_%d_%d", prefix, now.UnixMilli(), f.faker.Number(1000, 9999))
		p.Timestamp = now
		out = append(out, p)
	}
	return out
}
