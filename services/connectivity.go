package services

import "sync"

// ConnectivityGate adalah boundary sinyal konektivitas: baca state sekarang
// dan subscribe transisi. Sumber sinyalnya eksternal (probe platform atau
// toggle manual lewat API lokal).
type ConnectivityGate interface {
	Online() bool
	Subscribe() <-chan bool
}

// ManualGate adalah implementasi gate yang di-set dari luar. Dipakai
// production (probe platform memanggil Set) dan test.
type ManualGate struct {
	mu     sync.Mutex
	online bool
	subs   []chan bool
}

func NewManualGate(online bool) *ManualGate {
	return &ManualGate{online: online}
}

func (g *ManualGate) Online() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.online
}

// Subscribe mengembalikan channel transisi. Channel buffered; kalau penuh,
// event terlama tidak ditunggu (subscriber selalu bisa membaca Online()).
func (g *ManualGate) Subscribe() <-chan bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan bool, 8)
	g.subs = append(g.subs, ch)
	return ch
}

// Set mengubah state dan membangunkan semua subscriber. Transisi
// offline->online harus langsung membangunkan sync worker yang sedang parkir,
// bukan menunggu interval poll berikutnya.
func (g *ManualGate) Set(online bool) {
	g.mu.Lock()
	if g.online == online {
		g.mu.Unlock()
		return
	}
	g.online = online
	subs := make([]chan bool, len(g.subs))
	copy(subs, g.subs)
	g.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- online:
		default:
		}
	}
}
