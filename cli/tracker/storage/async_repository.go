package storage

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	log "github.com/sirupsen/logrus"
)

// AsyncRepository передаёт отметки в хранилища пулом воркеров, не задерживая запись
type AsyncRepository struct {
	repo   Saver
	ch     chan interface{ ToBytes() ([]byte, error) }
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	// mu отделяет постановку в очередь от закрытия: после closed новые отметки не принимаются
	mu     sync.RWMutex
	closed bool
}

func NewAsyncRepository(repo Saver, buffer, workers int) *AsyncRepository {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	ar := &AsyncRepository{
		repo:   repo,
		ch:     make(chan interface{ ToBytes() ([]byte, error) }, buffer),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		ar.wg.Add(1)
		go ar.worker()
	}
	return ar
}

func (a *AsyncRepository) worker() {
	defer a.wg.Done()
	for {
		select {
		case msg := <-a.ch:
			if err := a.repo.Save(msg); err != nil {
				log.WithField("err", err).Error("Ошибка передачи отметки во внешние хранилища")
			}
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *AsyncRepository) Save(m interface{ ToBytes() ([]byte, error) }) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return fmt.Errorf("асинхронный репозиторий был закрыт")
	}

	// Воркеры работают до закрытия, поэтому место в очереди освободится
	a.ch <- m
	return nil
}

// Close дожидается отправки уже принятых отметок и останавливает воркеры
func (a *AsyncRepository) Close() {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()

		a.drain()
		a.cancel()
		a.wg.Wait()
	})
}

func (a *AsyncRepository) drain() {
	for {
		select {
		case msg := <-a.ch:
			if err := a.repo.Save(msg); err != nil {
				log.WithField("err", err).Error("Ошибка передачи отметки во внешние хранилища")
			}
		default:
			return
		}
	}
}
