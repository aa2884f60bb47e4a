package provider

import "context"

// BatchItem is the outcome of one request in a batch
type BatchItem struct {
	Index  int    `json:"index"`
	Result Result `json:"result"`
	Err    error  `json:"-"`
}

// TranslateBatch translates requests one after another, pacing calls by the
// configured batch delay. A failed item does not stop the batch. progress, if
// set, is called after every item.
func (p *Provider) TranslateBatch(ctx context.Context, reqs []Request, progress func(completed, total int)) []BatchItem {
	items := make([]BatchItem, len(reqs))
	limiter := p.limiter()

	for i, req := range reqs {
		items[i].Index = i

		if err := limiter.Wait(ctx); err != nil {
			for j := i; j < len(reqs); j++ {
				items[j] = BatchItem{Index: j, Err: err}
			}
			return items
		}

		items[i].Result, items[i].Err = p.Translate(ctx, req)
		if progress != nil {
			progress(i+1, len(reqs))
		}
	}

	return items
}
