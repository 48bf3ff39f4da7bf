// Package reconcile сверяет зависшие ожидающие транзакции с состоянием платежей у процессоров.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/metrics"
	"github.com/fsdevblog/credit-ledger/internal/transport/processor"
	"github.com/sirupsen/logrus"
)

var ErrNoTransactions = errors.New("no pending transactions")

const (
	defaultServiceTimeout         = 3 * time.Second
	defaultAPITimeout             = 10 * time.Second
	defaultLimitPerIteration uint = 100
	defaultWorkers           uint = 5
	defaultInterval               = time.Minute
	defaultOlderThan              = 15 * time.Minute
)

// Processor периодически опрашивает процессоров о платежах, по которым не пришел вебхук.
type Processor struct {
	svs               Servicer
	inspectors        map[domain.PaymentType]Inspector
	l                 *logrus.Entry
	limitPerIteration uint
	workers           uint
	interval          time.Duration
	olderThan         time.Duration
}

func New(svs Servicer, inspectors map[domain.PaymentType]Inspector, l *logrus.Logger) *Processor {
	return &Processor{
		svs:        svs,
		inspectors: inspectors,
		l: l.WithFields(logrus.Fields{
			"component": "reconcile",
			"module":    "processor",
		}),
		limitPerIteration: defaultLimitPerIteration,
		workers:           defaultWorkers,
		interval:          defaultInterval,
		olderThan:         defaultOlderThan,
	}
}

// SetLimitPerIteration устанавливает кол-во транзакций, обрабатываемых в одной итерации.
func (p *Processor) SetLimitPerIteration(limit uint) *Processor {
	p.limitPerIteration = limit
	return p
}

// SetWorkers устанавливает кол-во воркеров, параллельно опрашивающих процессоров.
func (p *Processor) SetWorkers(workers uint) *Processor {
	p.workers = workers
	return p
}

func (p *Processor) SetInterval(interval time.Duration) *Processor {
	if interval > 0 {
		p.interval = interval
	}
	return p
}

// SetOlderThan транзакции моложе olderThan не трогаем, по ним еще может прийти вебхук.
func (p *Processor) SetOlderThan(olderThan time.Duration) *Processor {
	if olderThan > 0 {
		p.olderThan = olderThan
	}
	return p
}

// Run запускает сверку раз в interval до отмены контекста.
//
// Алгоритм работы:
//  1. Запрашивает через сервисный слой ожидающие транзакции старше olderThan (не больше limitPerIteration).
//  2. Воркеры опрашивают процессор каждой транзакции о состоянии платежа.
//  3. Оплаченные платежи проводятся через Settle с данными самой транзакции (повторная доставка вебхука
//     после этого будет дубликатом), истекшие переводятся в failed.
func (p *Processor) Run(ctx context.Context) {
	p.l.WithFields(logrus.Fields{
		"limitPerIteration": p.limitPerIteration,
		"workers":           p.workers,
		"interval":          p.interval,
		"olderThan":         p.olderThan,
	}).Info("Starting")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.l.Info("Got stop signal, exiting...")
			return
		case <-ticker.C:
			if err := p.process(ctx); err != nil && !errors.Is(err, ErrNoTransactions) {
				p.l.WithError(err).Error("process error")
			}
		}
	}
}

func (p *Processor) process(ctx context.Context) error {
	transactions, produceErr := p.produce(ctx)
	if produceErr != nil {
		return fmt.Errorf("process: %w", produceErr)
	}

	var errs []error
	for _, result := range p.runWorkers(ctx, transactions) {
		if err := p.apply(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("process: %w", errors.Join(errs...))
	}
	return nil
}

// apply применяет состояние платежа к транзакции.
func (p *Processor) apply(ctx context.Context, result workerResult) error {
	// ошибка опроса уже залогирована, транзакция попадет в следующую итерацию.
	if result.Error != nil {
		return nil
	}
	tx := result.Transaction

	reqCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()

	l := p.l.WithFields(logrus.Fields{
		"externalReference": tx.ExternalReference,
		"accountId":         tx.AccountID,
		"paymentType":       tx.PaymentType,
	})

	switch result.State {
	case domain.ChargeStatePaid:
		res, err := p.svs.Settle(reqCtx, domain.SettlementEvent{
			ExternalReference: tx.ExternalReference,
			AccountID:         tx.AccountID,
			CreditsToAdd:      tx.Credits,
			SettlementAmount:  tx.Amount,
			PaymentType:       tx.PaymentType,
		})
		if err != nil {
			return fmt.Errorf("settle %s: %w", tx.ExternalReference, err)
		}
		if res.Applied() {
			metrics.ReconcileReview.WithLabelValues(string(tx.PaymentType), "settled_by_poll").Inc()
			l.WithField("reconcile_review", true).Warn("settled by polling, webhook was not delivered")
		}
	case domain.ChargeStateExpired:
		marked, err := p.svs.MarkFailed(reqCtx, tx.ExternalReference)
		if err != nil {
			return fmt.Errorf("mark failed %s: %w", tx.ExternalReference, err)
		}
		if marked {
			l.Info("expired charge marked failed")
		}
	case domain.ChargeStatePending:
		l.Debug("charge still pending")
	}
	return nil
}

type workerResult struct {
	WorkerID    uint
	Transaction domain.Transaction
	State       domain.ChargeState
	Error       error
}

// runWorkers fan-out/fan-in опроса процессоров.
func (p *Processor) runWorkers(ctx context.Context, transactions []domain.Transaction) []workerResult {
	var taskCh = make(chan domain.Transaction, len(transactions))
	for _, tx := range transactions {
		taskCh <- tx
	}
	close(taskCh)

	wg := new(sync.WaitGroup)
	wg.Add(int(p.workers)) // nolint:gosec

	var resultCh = make(chan workerResult, len(transactions))
	for i := range p.workers {
		go p.worker(ctx, wg, i+1, taskCh, resultCh)
	}
	wg.Wait()
	close(resultCh)

	var results = make([]workerResult, 0, len(transactions))
	for result := range resultCh {
		if result.Error != nil {
			p.l.WithFields(logrus.Fields{
				"worker":            result.WorkerID,
				"externalReference": result.Transaction.ExternalReference,
			}).WithError(result.Error).Error("get charge state")
		}
		results = append(results, result)
	}
	return results
}

func (p *Processor) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	workerID uint,
	taskCh <-chan domain.Transaction,
	resultCh chan<- workerResult,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-taskCh:
			if !ok {
				return
			}
			resultCh <- p.inspect(ctx, workerID, task)
		}
	}
}

// inspect запрашивает состояние платежа, при ответе 429 ждет указанное процессором время и повторяет.
func (p *Processor) inspect(ctx context.Context, workerID uint, task domain.Transaction) workerResult {
	result := workerResult{WorkerID: workerID, Transaction: task}

	inspector, ok := p.inspectors[task.PaymentType]
	if !ok {
		result.Error = fmt.Errorf("no inspector for payment type %q", task.PaymentType)
		return result
	}

	for {
		reqCtx, cancel := context.WithTimeout(ctx, defaultAPITimeout)
		state, err := inspector.ChargeState(reqCtx, task.ExternalReference)
		cancel()

		if err == nil {
			result.State = state
			return result
		}

		var tooManyReq *processor.TooManyRequestError
		if !errors.As(err, &tooManyReq) {
			result.Error = err
			return result
		}
		select {
		case <-ctx.Done():
			result.Error = ctx.Err()
			return result
		case <-time.After(tooManyReq.RetryAfter):
		}
	}
}

// produce возвращает ErrNoTransactions, если сверять нечего.
func (p *Processor) produce(ctx context.Context) ([]domain.Transaction, error) {
	produceCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()

	transactions, err := p.svs.PendingForReconcile(produceCtx, p.olderThan, p.limitPerIteration)
	if err != nil {
		return nil, fmt.Errorf("produce: %w", err)
	}
	if len(transactions) == 0 {
		return nil, ErrNoTransactions
	}
	return transactions, nil
}
