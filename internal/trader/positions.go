package trader

import (
	"sort"

	"github.com/skalibog/rsibot/pkg/models"
)

// Positions открытые позиции, не больше одной на пару
type Positions struct {
	items map[string]*models.OpenPosition // symbol -> позиция
}

// NewPositions создает пустой набор позиций
func NewPositions() *Positions {
	return &Positions{items: make(map[string]*models.OpenPosition)}
}

// Add добавляет позицию. Если по паре уже есть позиция, возвращает false.
func (p *Positions) Add(pos *models.OpenPosition) bool {
	if _, ok := p.items[pos.Pair.Symbol]; ok {
		return false
	}
	p.items[pos.Pair.Symbol] = pos
	return true
}

// Remove удаляет позицию пары
func (p *Positions) Remove(symbol string) bool {
	if _, ok := p.items[symbol]; !ok {
		return false
	}
	delete(p.items, symbol)
	return true
}

// Get возвращает позицию пары
func (p *Positions) Get(symbol string) (*models.OpenPosition, bool) {
	pos, ok := p.items[symbol]
	return pos, ok
}

// Has сообщает о наличии позиции по паре
func (p *Positions) Has(symbol string) bool {
	_, ok := p.items[symbol]
	return ok
}

func (p *Positions) Len() int {
	return len(p.items)
}

// Sorted возвращает позиции, упорядоченные по символу
func (p *Positions) Sorted() []*models.OpenPosition {
	out := make([]*models.OpenPosition, 0, len(p.items))
	for _, pos := range p.items {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Pair.Symbol < out[j].Pair.Symbol
	})
	return out
}
