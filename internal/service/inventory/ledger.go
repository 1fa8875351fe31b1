package inventory

import (
	"sync"
	"sync/atomic"
)

// ReservationLedger — потокобезопасный in-process кэш счётчиков резервов
// по товарам. Это производные данные: источником истины остаётся durable
// запись Stock в репозитории, ledger лишь экономит обращения к хранилищу
// при повторных advisory-запросах.
//
// Счётчик каждого товара — отдельный atomic: записи по разным товарам не
// сериализуются на общем локе. RWMutex защищает только структуру map при
// создании новых записей.
type ReservationLedger struct {
	mu      sync.RWMutex
	entries map[string]*atomic.Int64
}

// NewReservationLedger создаёт пустой ledger.
func NewReservationLedger() *ReservationLedger {
	return &ReservationLedger{
		entries: make(map[string]*atomic.Int64),
	}
}

func (l *ReservationLedger) entry(productID string) *atomic.Int64 {
	l.mu.RLock()
	counter, ok := l.entries[productID]
	l.mu.RUnlock()
	if ok {
		return counter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if counter, ok = l.entries[productID]; ok {
		return counter
	}
	counter = new(atomic.Int64)
	l.entries[productID] = counter
	return counter
}

// Add увеличивает счётчик резервов товара на qty и возвращает новое значение.
func (l *ReservationLedger) Add(productID string, qty int32) int64 {
	return l.entry(productID).Add(int64(qty))
}

// Sub уменьшает счётчик резервов товара на qty с отсечкой в нуле.
// Возвращает фактически снятое количество и признак underflow: попытка уйти
// ниже нуля — аномалия, о которой вызывающая сторона обязана просигналить,
// а не молча проглотить.
func (l *ReservationLedger) Sub(productID string, qty int32) (int32, bool) {
	counter := l.entry(productID)
	want := int64(qty)
	for {
		current := counter.Load()
		removed := want
		if removed > current {
			removed = current
		}
		if counter.CompareAndSwap(current, current-removed) {
			return int32(removed), removed < want
		}
	}
}

// Reserved возвращает текущий счётчик резервов товара.
// Advisory-значение: не основание для коммит-решений.
func (l *ReservationLedger) Reserved(productID string) int64 {
	l.mu.RLock()
	counter, ok := l.entries[productID]
	l.mu.RUnlock()
	if !ok {
		return 0
	}
	return counter.Load()
}

// Snapshot возвращает копию всех счётчиков (для диагностики и метрик).
func (l *ReservationLedger) Snapshot() map[string]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]int64, len(l.entries))
	for id, counter := range l.entries {
		out[id] = counter.Load()
	}
	return out
}
