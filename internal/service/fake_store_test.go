package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/credit-ledger/pkg/uow"
)

// memState состояние хранилища в памяти. Копируется целиком при открытии транзакции.
type memState struct {
	accounts     map[string]domain.Account
	transactions map[string]domain.Transaction
	referrals    map[string]domain.Referral
	rewards      map[string]domain.ReferralReward
	// checked порядковый номер последней проверки транзакции сверкой, 0 - не проверялась.
	checked  map[string]int64
	checkSeq int64
}

func newMemState() *memState {
	return &memState{
		accounts:     make(map[string]domain.Account),
		transactions: make(map[string]domain.Transaction),
		referrals:    make(map[string]domain.Referral),
		rewards:      make(map[string]domain.ReferralReward),
		checked:      make(map[string]int64),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.accounts {
		if v.ReferredByReferralID != nil {
			id := *v.ReferredByReferralID
			v.ReferredByReferralID = &id
		}
		c.accounts[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.referrals {
		c.referrals[k] = v
	}
	for k, v := range s.rewards {
		c.rewards[k] = v
	}
	for k, v := range s.checked {
		c.checked[k] = v
	}
	c.checkSeq = s.checkSeq
	return c
}

// memUOW сериализуемая реализация uow.UOW: транзакции выполняются строго по одной над копией состояния,
// копия публикуется только при успешном завершении fn.
type memUOW struct {
	mu       sync.Mutex
	state    *memState
	failures map[string]error
	commits  int
}

func newMemUOW() *memUOW {
	return &memUOW{state: newMemState(), failures: make(map[string]error)}
}

func (u *memUOW) Register(_ uow.RepositoryName, _ uow.RepositoryFactory) error {
	return nil
}

func (u *memUOW) Do(ctx context.Context, fn func(context.Context, uow.TX) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	working := u.state.clone()
	if err := fn(ctx, &memTX{u: u, state: working}); err != nil {
		return err
	}
	u.state = working
	u.commits++
	return nil
}

// GetRepository репозитории вне транзакции работают в режиме autocommit.
func (u *memUOW) GetRepository(name uow.RepositoryName) (uow.Repository, error) {
	return u.repository(name, func(fn func(*memState) error) error {
		u.mu.Lock()
		defer u.mu.Unlock()
		return fn(u.state)
	})
}

func (u *memUOW) repository(name uow.RepositoryName, with func(func(*memState) error) error) (uow.Repository, error) {
	switch repoargs.RepositoryName(name) {
	case repoargs.AccountRepoName:
		return &memAccountRepo{u: u, with: with}, nil
	case repoargs.TransactionRepoName:
		return &memTransactionRepo{u: u, with: with}, nil
	case repoargs.ReferralRepoName:
		return &memReferralRepo{u: u, with: with}, nil
	}
	return nil, uow.ErrRepositoryNotRegistered
}

func (u *memUOW) fail(method string) error {
	return u.failures[method]
}

// snapshot копия зафиксированного состояния для проверок в тестах.
func (u *memUOW) snapshot() *memState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state.clone()
}

func (u *memUOW) seedAccount(id string, balance int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.state.accounts[id] = domain.Account{
		ID:            id,
		Username:      "user-" + id,
		CreditBalance: balance,
		CreatedAt:     time.Now(),
	}
}

func (u *memUOW) seedTransaction(tx domain.Transaction) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.state.transactions[tx.ID] = tx
}

func (u *memUOW) seedReferral(r domain.Referral) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.state.referrals[r.ID] = r
}

type memTX struct {
	u     *memUOW
	state *memState
}

func (t *memTX) Get(name uow.RepositoryName) (uow.Repository, error) {
	return t.u.repository(name, func(fn func(*memState) error) error {
		return fn(t.state)
	})
}

type memAccountRepo struct {
	u    *memUOW
	with func(func(*memState) error) error
}

func (r *memAccountRepo) Create(_ context.Context, args repoargs.CreateAccount) (*domain.Account, error) {
	var res *domain.Account
	err := r.with(func(s *memState) error {
		for _, a := range s.accounts {
			if a.Username == args.Username {
				return domain.ErrUsernameTaken
			}
		}
		a := domain.Account{
			ID:        args.ID,
			Username:  args.Username,
			Password:  args.Password,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		s.accounts[a.ID] = a
		res = &a
		return nil
	})
	return res, err
}

func (r *memAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	if err := r.u.fail("FindByID"); err != nil {
		return nil, err
	}
	var res *domain.Account
	err := r.with(func(s *memState) error {
		a, ok := s.accounts[id]
		if !ok {
			return domain.ErrRecordNotFound
		}
		res = &a
		return nil
	})
	return res, err
}

func (r *memAccountRepo) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	var res *domain.Account
	err := r.with(func(s *memState) error {
		for _, a := range s.accounts {
			if a.Username == username {
				res = &a
				return nil
			}
		}
		return domain.ErrRecordNotFound
	})
	return res, err
}

func (r *memAccountRepo) IncrementBalance(_ context.Context, id string, credits int64) (*domain.Account, error) {
	if err := r.u.fail("IncrementBalance"); err != nil {
		return nil, err
	}
	var res *domain.Account
	err := r.with(func(s *memState) error {
		a, ok := s.accounts[id]
		if !ok {
			return domain.ErrRecordNotFound
		}
		a.CreditBalance += credits
		a.UpdatedAt = time.Now()
		s.accounts[id] = a
		res = &a
		return nil
	})
	return res, err
}

func (r *memAccountRepo) SetReferredBy(_ context.Context, id string, referralID string) error {
	return r.with(func(s *memState) error {
		a, ok := s.accounts[id]
		if !ok || a.ReferredByReferralID != nil {
			return domain.ErrOwnerConflict
		}
		a.ReferredByReferralID = &referralID
		s.accounts[id] = a
		return nil
	})
}

func (r *memAccountRepo) ListReferredBy(_ context.Context, referralID string) ([]domain.ReferredAccount, error) {
	res := make([]domain.ReferredAccount, 0)
	err := r.with(func(s *memState) error {
		for _, a := range s.accounts {
			if a.ReferredByReferralID != nil && *a.ReferredByReferralID == referralID {
				res = append(res, domain.ReferredAccount{ID: a.ID, Username: a.Username, CreatedAt: a.CreatedAt})
			}
		}
		return nil
	})
	return res, err
}

type memTransactionRepo struct {
	u    *memUOW
	with func(func(*memState) error) error
}

func (r *memTransactionRepo) Create(_ context.Context, args repoargs.CreateTransaction) (*domain.Transaction, error) {
	if err := r.u.fail("CreateTransaction"); err != nil {
		return nil, err
	}
	var res *domain.Transaction
	err := r.with(func(s *memState) error {
		for _, t := range s.transactions {
			if t.ExternalReference == args.ExternalReference {
				return domain.ErrDuplicateKey
			}
		}
		t := domain.Transaction{
			ID:                args.ID,
			AccountID:         args.AccountID,
			Amount:            args.Amount,
			Credits:           args.Credits,
			PaymentType:       args.PaymentType,
			ExternalReference: args.ExternalReference,
			Status:            args.Status,
			CreatedAt:         time.Now(),
			UpdatedAt:         time.Now(),
		}
		s.transactions[t.ID] = t
		res = &t
		return nil
	})
	return res, err
}

func (r *memTransactionRepo) FindByExternalReference(
	_ context.Context,
	externalReference string,
) (*domain.Transaction, error) {
	var res *domain.Transaction
	err := r.with(func(s *memState) error {
		for _, t := range s.transactions {
			if t.ExternalReference == externalReference {
				res = &t
				return nil
			}
		}
		return domain.ErrRecordNotFound
	})
	return res, err
}

// LockByExternalReference транзакции и так выполняются по одной.
func (r *memTransactionRepo) LockByExternalReference(
	ctx context.Context,
	externalReference string,
) (*domain.Transaction, error) {
	return r.FindByExternalReference(ctx, externalReference)
}

func (r *memTransactionRepo) UpdateStatus(
	_ context.Context,
	id string,
	from, to domain.TransactionStatus,
) (*domain.Transaction, error) {
	if err := r.u.fail("UpdateStatus"); err != nil {
		return nil, err
	}
	var res *domain.Transaction
	err := r.with(func(s *memState) error {
		t, ok := s.transactions[id]
		if !ok || t.Status != from {
			return domain.ErrRecordNotFound
		}
		t.Status = to
		t.UpdatedAt = time.Now()
		s.transactions[id] = t
		res = &t
		return nil
	})
	return res, err
}

func (r *memTransactionRepo) GetByAccountID(_ context.Context, accountID string) ([]domain.Transaction, error) {
	res := make([]domain.Transaction, 0)
	err := r.with(func(s *memState) error {
		for _, t := range s.transactions {
			if t.AccountID == accountID {
				res = append(res, t)
			}
		}
		return nil
	})
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, err
}

func (r *memTransactionRepo) ClaimPending(
	_ context.Context,
	args repoargs.PendingTransactions,
) ([]domain.Transaction, error) {
	res := make([]domain.Transaction, 0)
	err := r.with(func(s *memState) error {
		for _, t := range s.transactions {
			if t.Status == domain.TransactionStatusPending && t.CreatedAt.Before(args.CreatedBefore) {
				res = append(res, t)
			}
		}
		// как ORDER BY last_checked_at NULLS FIRST, created_at.
		sort.Slice(res, func(i, j int) bool {
			ci, cj := s.checked[res[i].ID], s.checked[res[j].ID]
			if ci != cj {
				return ci < cj
			}
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		})
		if uint(len(res)) > args.Limit {
			res = res[:args.Limit]
		}
		for _, t := range res {
			s.checkSeq++
			s.checked[t.ID] = s.checkSeq
		}
		return nil
	})
	return res, err
}

type memReferralRepo struct {
	u    *memUOW
	with func(func(*memState) error) error
}

func (r *memReferralRepo) Create(_ context.Context, args repoargs.CreateReferral) (*domain.Referral, error) {
	var res *domain.Referral
	err := r.with(func(s *memState) error {
		for _, ref := range s.referrals {
			if ref.Code == args.Code || ref.OwnerAccountID == args.OwnerAccountID {
				return domain.ErrDuplicateKey
			}
		}
		ref := domain.Referral{
			ID:             args.ID,
			Code:           args.Code,
			OwnerAccountID: args.OwnerAccountID,
			CreatedAt:      time.Now(),
		}
		s.referrals[ref.ID] = ref
		res = &ref
		return nil
	})
	return res, err
}

func (r *memReferralRepo) FindByCode(_ context.Context, code string) (*domain.Referral, error) {
	return r.find(func(ref domain.Referral) bool { return ref.Code == code })
}

func (r *memReferralRepo) FindByOwner(_ context.Context, accountID string) (*domain.Referral, error) {
	return r.find(func(ref domain.Referral) bool { return ref.OwnerAccountID == accountID })
}

func (r *memReferralRepo) find(match func(domain.Referral) bool) (*domain.Referral, error) {
	var res *domain.Referral
	err := r.with(func(s *memState) error {
		for _, ref := range s.referrals {
			if match(ref) {
				res = &ref
				return nil
			}
		}
		return domain.ErrRecordNotFound
	})
	return res, err
}

func (r *memReferralRepo) CreateReward(
	_ context.Context,
	args repoargs.CreateReferralReward,
) (*domain.ReferralReward, error) {
	if err := r.u.fail("CreateReward"); err != nil {
		return nil, err
	}
	var res *domain.ReferralReward
	err := r.with(func(s *memState) error {
		for _, rw := range s.rewards {
			if rw.ReferredAccountID == args.ReferredAccountID {
				return domain.ErrDuplicateKey
			}
		}
		rw := domain.ReferralReward{
			ID:                args.ID,
			ReferralID:        args.ReferralID,
			ReferrerAccountID: args.ReferrerAccountID,
			ReferredAccountID: args.ReferredAccountID,
			ReferrerCredits:   args.ReferrerCredits,
			SignupCredits:     args.SignupCredits,
			CreatedAt:         time.Now(),
		}
		s.rewards[rw.ID] = rw
		res = &rw
		return nil
	})
	return res, err
}

func (r *memReferralRepo) SumRewardsByReferrer(
	_ context.Context,
	accountID string,
) (*repoargs.ReferralRewardAggregation, error) {
	agg := &repoargs.ReferralRewardAggregation{}
	err := r.with(func(s *memState) error {
		for _, rw := range s.rewards {
			if rw.ReferrerAccountID == accountID {
				agg.Count++
				agg.Credits += rw.ReferrerCredits
			}
		}
		return nil
	})
	return agg, err
}
