package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davesep77/evolentra/internal/models"
	"github.com/davesep77/evolentra/internal/repository"
)

// memStore is an in-memory repository.Store. WithinTx restores a snapshot
// when fn fails, which is enough to observe all-or-nothing behaviour.
type memStore struct {
	d *memData
}

type walletKey struct {
	userID   uint64
	currency string
}

type payoutKey struct {
	investmentID uint64
	date         string
}

type memData struct {
	seq         uint64
	users       map[uint64]models.User
	nodes       map[uint64]models.BinaryTreeNode
	plans       map[uint64]models.InvestmentPlan
	investments map[uint64]models.Investment
	payouts     map[payoutKey]models.RoiPayout
	wallets     map[walletKey]models.Wallet
	txs         []models.Transaction
	referrals   []models.ReferralCommission
	binaries    []models.BinaryCommission
	withdrawals map[uint64]models.WithdrawalRequest

	// fail, when set, is consulted before each write.
	fail func(op string) error
}

func newMemStore() *memStore {
	return &memStore{d: &memData{
		users:       map[uint64]models.User{},
		nodes:       map[uint64]models.BinaryTreeNode{},
		plans:       map[uint64]models.InvestmentPlan{},
		investments: map[uint64]models.Investment{},
		payouts:     map[payoutKey]models.RoiPayout{},
		wallets:     map[walletKey]models.Wallet{},
		withdrawals: map[uint64]models.WithdrawalRequest{},
	}}
}

func (d *memData) clone() memData {
	c := *d
	c.users = cloneMap(d.users)
	c.nodes = cloneMap(d.nodes)
	c.plans = cloneMap(d.plans)
	c.investments = cloneMap(d.investments)
	c.payouts = cloneMap(d.payouts)
	c.wallets = cloneMap(d.wallets)
	c.withdrawals = cloneMap(d.withdrawals)
	c.txs = append([]models.Transaction(nil), d.txs...)
	c.referrals = append([]models.ReferralCommission(nil), d.referrals...)
	c.binaries = append([]models.BinaryCommission(nil), d.binaries...)
	return c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *memData) next() uint64 {
	d.seq++
	return d.seq
}

func (d *memData) check(op string) error {
	if d.fail != nil {
		return d.fail(op)
	}
	return nil
}

func (s *memStore) Users() repository.UserRepository               { return memUsers{s.d} }
func (s *memStore) Tree() repository.BinaryTreeRepository          { return memTree{s.d} }
func (s *memStore) Plans() repository.PlanRepository               { return memPlans{s.d} }
func (s *memStore) Investments() repository.InvestmentRepository   { return memInvestments{s.d} }
func (s *memStore) Payouts() repository.RoiPayoutRepository        { return memPayouts{s.d} }
func (s *memStore) Wallets() repository.WalletRepository           { return memWallets{s.d} }
func (s *memStore) Transactions() repository.TransactionRepository { return memTransactions{s.d} }
func (s *memStore) Commissions() repository.CommissionRepository   { return memCommissions{s.d} }
func (s *memStore) Withdrawals() repository.WithdrawalRepository   { return memWithdrawals{s.d} }

func (s *memStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	snapshot := s.d.clone()
	if err := fn(s); err != nil {
		*s.d = snapshot
		return err
	}
	return nil
}

// seeding helpers

func (s *memStore) addUser(u models.User) *models.User {
	if u.ID == 0 {
		u.ID = s.d.next()
	}
	if u.Status == "" {
		u.Status = models.UserStatusActive
	}
	if u.Role == "" {
		u.Role = models.RoleInvestor
	}
	if u.ReferralCode == "" {
		u.ReferralCode = fmt.Sprintf("EVO%08X", u.ID)
	}
	s.d.users[u.ID] = u
	for _, c := range []string{"BTC", "ETH", "USDT", "TRX", "XRP"} {
		s.d.wallets[walletKey{u.ID, c}] = models.Wallet{ID: s.d.next(), UserID: u.ID, Currency: c}
	}
	return &u
}

func (s *memStore) addNode(n models.BinaryTreeNode) {
	n.ID = s.d.next()
	s.d.nodes[n.UserID] = n
}

func (s *memStore) addPlan(p models.InvestmentPlan) *models.InvestmentPlan {
	if p.ID == 0 {
		p.ID = s.d.next()
	}
	if p.Status == "" {
		p.Status = models.PlanStatusActive
	}
	s.d.plans[p.ID] = p
	return &p
}

func (s *memStore) wallet(userID uint64, currency string) models.Wallet {
	return s.d.wallets[walletKey{userID, currency}]
}

func (s *memStore) node(userID uint64) models.BinaryTreeNode {
	return s.d.nodes[userID]
}

func (s *memStore) txsOf(userID uint64, typ models.TransactionType) []models.Transaction {
	var out []models.Transaction
	for _, t := range s.d.txs {
		if t.UserID == userID && t.Type == typ {
			out = append(out, t)
		}
	}
	return out
}

// users

type memUsers struct{ d *memData }

func (r memUsers) Create(_ context.Context, u *models.User) (uint64, error) {
	if err := r.d.check("users.create"); err != nil {
		return 0, err
	}
	for _, existing := range r.d.users {
		if existing.Email == u.Email {
			return 0, fmt.Errorf("duplicate email %s", u.Email)
		}
	}
	c := *u
	c.ID = r.d.next()
	r.d.users[c.ID] = c
	return c.ID, nil
}

func (r memUsers) FindByID(_ context.Context, id uint64) (*models.User, error) {
	u, ok := r.d.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.d.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r memUsers) FindByReferralCode(_ context.Context, code string) (*models.User, error) {
	for _, u := range r.d.users {
		if u.ReferralCode == code {
			return &u, nil
		}
	}
	return nil, nil
}

func (r memUsers) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	u, _ := r.FindByReferralCode(ctx, code)
	return u != nil, nil
}

func (r memUsers) ListReferrals(_ context.Context, referrerID uint64) ([]models.ReferralEntry, error) {
	var out []models.ReferralEntry
	for _, u := range r.d.users {
		if u.ReferrerID != nil && *u.ReferrerID == referrerID {
			out = append(out, models.ReferralEntry{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Status: u.Status})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memUsers) UpdateStatus(_ context.Context, id uint64, status string) error {
	u := r.d.users[id]
	u.Status = status
	r.d.users[id] = u
	return nil
}

// tree

type memTree struct{ d *memData }

func (r memTree) Create(_ context.Context, n *models.BinaryTreeNode) (uint64, error) {
	if err := r.d.check("tree.create"); err != nil {
		return 0, err
	}
	if _, ok := r.d.nodes[n.UserID]; ok {
		return 0, fmt.Errorf("duplicate node for user %d", n.UserID)
	}
	c := *n
	c.ID = r.d.next()
	r.d.nodes[c.UserID] = c
	return c.ID, nil
}

func (r memTree) FindByUserID(_ context.Context, userID uint64) (*models.BinaryTreeNode, error) {
	n, ok := r.d.nodes[userID]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (r memTree) LockByUserID(ctx context.Context, userID uint64) (*models.BinaryTreeNode, error) {
	return r.FindByUserID(ctx, userID)
}

func (r memTree) AttachChild(_ context.Context, parentUserID uint64, leg models.Leg, child uint64) (bool, error) {
	if err := r.d.check("tree.attach"); err != nil {
		return false, err
	}
	n, ok := r.d.nodes[parentUserID]
	if !ok {
		return false, nil
	}
	if leg == models.LegLeft {
		if n.LeftChildID != nil {
			return false, nil
		}
		n.LeftChildID = &child
	} else {
		if n.RightChildID != nil {
			return false, nil
		}
		n.RightChildID = &child
	}
	r.d.nodes[parentUserID] = n
	return true, nil
}

func (r memTree) AddVolume(_ context.Context, userID uint64, leg models.Leg, amount decimal.Decimal) error {
	if err := r.d.check("tree.volume"); err != nil {
		return err
	}
	n := r.d.nodes[userID]
	if leg == models.LegLeft {
		n.LeftVolume = n.LeftVolume.Add(amount)
	} else {
		n.RightVolume = n.RightVolume.Add(amount)
	}
	r.d.nodes[userID] = n
	return nil
}

func (r memTree) ApplyMatch(_ context.Context, userID uint64, leftCarry, rightCarry, matched decimal.Decimal) error {
	if err := r.d.check("tree.match"); err != nil {
		return err
	}
	n := r.d.nodes[userID]
	n.LeftVolume, n.RightVolume = decimal.Zero, decimal.Zero
	n.LeftCarryForward, n.RightCarryForward = leftCarry, rightCarry
	n.TotalMatched = n.TotalMatched.Add(matched)
	r.d.nodes[userID] = n
	return nil
}

func (r memTree) FindChildSummary(_ context.Context, userID uint64) (*models.ChildSummary, error) {
	n, ok := r.d.nodes[userID]
	if !ok {
		return nil, nil
	}
	u := r.d.users[userID]
	return &models.ChildSummary{UserID: userID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName,
		LeftVolume: n.LeftVolume, RightVolume: n.RightVolume, TotalMatched: n.TotalMatched}, nil
}

// plans

type memPlans struct{ d *memData }

func (r memPlans) FindByID(_ context.Context, id uint64) (*models.InvestmentPlan, error) {
	p, ok := r.d.plans[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r memPlans) ListActive(context.Context) ([]*models.InvestmentPlan, error) {
	var out []*models.InvestmentPlan
	for _, p := range r.d.plans {
		if p.Status == models.PlanStatusActive {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinAmount.LessThan(out[j].MinAmount) })
	return out, nil
}

// investments

type memInvestments struct{ d *memData }

func (r memInvestments) Create(_ context.Context, inv *models.Investment) (uint64, error) {
	if err := r.d.check("investments.create"); err != nil {
		return 0, err
	}
	c := *inv
	c.ID = r.d.next()
	r.d.investments[c.ID] = c
	return c.ID, nil
}

func (r memInvestments) LockByID(_ context.Context, id uint64) (*models.Investment, error) {
	inv, ok := r.d.investments[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r memInvestments) ListByUser(_ context.Context, userID uint64) ([]models.InvestmentView, error) {
	var out []models.InvestmentView
	for _, inv := range r.d.investments {
		if inv.UserID != userID {
			continue
		}
		p := r.d.plans[inv.PlanID]
		out = append(out, models.InvestmentView{Investment: inv, PlanName: p.Name, DurationDays: p.DurationDays, CapitalReturn: p.CapitalReturn})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memInvestments) ListAccruable(_ context.Context, day time.Time) ([]models.AccrualCandidate, error) {
	var out []models.AccrualCandidate
	for _, inv := range r.d.investments {
		if inv.Status != models.InvestmentStatusActive || inv.StartDate.After(day) || inv.EndDate.Before(day) {
			continue
		}
		p := r.d.plans[inv.PlanID]
		out = append(out, models.AccrualCandidate{InvestmentID: inv.ID, UserID: inv.UserID, DurationDays: p.DurationDays, CapitalReturn: p.CapitalReturn})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvestmentID < out[j].InvestmentID })
	return out, nil
}

func (r memInvestments) RecordAccrual(_ context.Context, id uint64, amount decimal.Decimal, daysElapsed int) error {
	if err := r.d.check("investments.accrue"); err != nil {
		return err
	}
	inv := r.d.investments[id]
	inv.TotalRoiEarned = inv.TotalRoiEarned.Add(amount)
	if daysElapsed > inv.DaysElapsed {
		inv.DaysElapsed = daysElapsed
	}
	r.d.investments[id] = inv
	return nil
}

func (r memInvestments) Complete(_ context.Context, id uint64, capitalReturned bool) error {
	inv := r.d.investments[id]
	inv.Status = models.InvestmentStatusCompleted
	inv.CapitalReturned = capitalReturned
	r.d.investments[id] = inv
	return nil
}

// payouts

type memPayouts struct{ d *memData }

func (r memPayouts) Exists(_ context.Context, investmentID uint64, day time.Time) (bool, error) {
	_, ok := r.d.payouts[payoutKey{investmentID, day.Format(dateLayout)}]
	return ok, nil
}

func (r memPayouts) Create(_ context.Context, p *models.RoiPayout) (uint64, error) {
	if err := r.d.check("payouts.create"); err != nil {
		return 0, err
	}
	key := payoutKey{p.InvestmentID, p.PayoutDate.Format(dateLayout)}
	if _, ok := r.d.payouts[key]; ok {
		return 0, fmt.Errorf("duplicate payout %v", key)
	}
	c := *p
	c.ID = r.d.next()
	r.d.payouts[key] = c
	return c.ID, nil
}

// wallets

type memWallets struct{ d *memData }

func (r memWallets) CreateDefaults(_ context.Context, userID uint64, currencies []string) error {
	if err := r.d.check("wallets.create"); err != nil {
		return err
	}
	for _, c := range currencies {
		r.d.wallets[walletKey{userID, c}] = models.Wallet{ID: r.d.next(), UserID: userID, Currency: c}
	}
	return nil
}

func (r memWallets) FindByUserAndCurrency(_ context.Context, userID uint64, currency string) (*models.Wallet, error) {
	w, ok := r.d.wallets[walletKey{userID, currency}]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r memWallets) LockByUserAndCurrency(ctx context.Context, userID uint64, currency string) (*models.Wallet, error) {
	return r.FindByUserAndCurrency(ctx, userID, currency)
}

func (r memWallets) ListByUser(_ context.Context, userID uint64) ([]*models.Wallet, error) {
	var out []*models.Wallet
	for k, w := range r.d.wallets {
		if k.userID == userID {
			w := w
			out = append(out, &w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

func (r memWallets) Credit(_ context.Context, userID uint64, currency string, kind models.CreditKind, amount decimal.Decimal) error {
	if err := r.d.check("wallets.credit:" + string(kind)); err != nil {
		return err
	}
	key := walletKey{userID, currency}
	w, ok := r.d.wallets[key]
	if !ok {
		return repository.ErrWalletNotFound
	}
	w.Balance = w.Balance.Add(amount)
	switch kind {
	case models.CreditDeposit:
		w.TotalDeposited = w.TotalDeposited.Add(amount)
	case models.CreditRoi:
		w.RoiBalance = w.RoiBalance.Add(amount)
	case models.CreditReferral:
		w.ReferralBalance = w.ReferralBalance.Add(amount)
	case models.CreditBinary:
		w.BinaryBalance = w.BinaryBalance.Add(amount)
	}
	r.d.wallets[key] = w
	return nil
}

func (r memWallets) Debit(_ context.Context, userID uint64, currency string, amount decimal.Decimal) error {
	if err := r.d.check("wallets.debit"); err != nil {
		return err
	}
	key := walletKey{userID, currency}
	w, ok := r.d.wallets[key]
	if !ok || w.Balance.LessThan(amount) {
		return repository.ErrInsufficientFunds
	}
	w.Balance = w.Balance.Sub(amount)
	r.d.wallets[key] = w
	return nil
}

func (r memWallets) AddTotalWithdrawn(_ context.Context, userID uint64, currency string, amount decimal.Decimal) error {
	key := walletKey{userID, currency}
	w, ok := r.d.wallets[key]
	if !ok {
		return repository.ErrWalletNotFound
	}
	w.TotalWithdrawn = w.TotalWithdrawn.Add(amount)
	r.d.wallets[key] = w
	return nil
}

// transactions

type memTransactions struct{ d *memData }

func (r memTransactions) Create(_ context.Context, t *models.Transaction) (uint64, error) {
	if err := r.d.check("transactions.create:" + string(t.Type)); err != nil {
		return 0, err
	}
	c := *t
	c.ID = r.d.next()
	r.d.txs = append(r.d.txs, c)
	return c.ID, nil
}

func (r memTransactions) UpdateStatusByReference(_ context.Context, typ models.TransactionType, refID uint64, status string) error {
	for i, t := range r.d.txs {
		if t.Type == typ && t.ReferenceID != nil && *t.ReferenceID == refID {
			r.d.txs[i].Status = status
		}
	}
	return nil
}

func (r memTransactions) ListByUser(_ context.Context, userID uint64, limit int) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for i := len(r.d.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.d.txs[i].UserID == userID {
			t := r.d.txs[i]
			out = append(out, &t)
		}
	}
	return out, nil
}

// commissions

type memCommissions struct{ d *memData }

func (r memCommissions) CreateReferral(_ context.Context, c *models.ReferralCommission) (uint64, error) {
	if err := r.d.check("commissions.referral"); err != nil {
		return 0, err
	}
	cp := *c
	cp.ID = r.d.next()
	r.d.referrals = append(r.d.referrals, cp)
	return cp.ID, nil
}

func (r memCommissions) CreateBinary(_ context.Context, c *models.BinaryCommission) (uint64, error) {
	if err := r.d.check("commissions.binary"); err != nil {
		return 0, err
	}
	cp := *c
	cp.ID = r.d.next()
	r.d.binaries = append(r.d.binaries, cp)
	return cp.ID, nil
}

func (r memCommissions) ListReferralByReferrer(_ context.Context, referrerID uint64, limit int) ([]*models.ReferralCommission, error) {
	var out []*models.ReferralCommission
	for i := len(r.d.referrals) - 1; i >= 0 && len(out) < limit; i-- {
		if r.d.referrals[i].ReferrerID == referrerID {
			c := r.d.referrals[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memCommissions) SumReferralByReferrer(_ context.Context, referrerID uint64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, c := range r.d.referrals {
		if c.ReferrerID == referrerID {
			sum = sum.Add(c.CommissionAmount)
		}
	}
	return sum, nil
}

func (r memCommissions) ListBinaryByUser(_ context.Context, userID uint64, limit int) ([]*models.BinaryCommission, error) {
	var out []*models.BinaryCommission
	for i := len(r.d.binaries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.d.binaries[i].UserID == userID {
			c := r.d.binaries[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

// withdrawals

type memWithdrawals struct{ d *memData }

func (r memWithdrawals) Create(_ context.Context, w *models.WithdrawalRequest) (uint64, error) {
	if err := r.d.check("withdrawals.create"); err != nil {
		return 0, err
	}
	c := *w
	c.ID = r.d.next()
	r.d.withdrawals[c.ID] = c
	return c.ID, nil
}

func (r memWithdrawals) LockByID(_ context.Context, id uint64) (*models.WithdrawalRequest, error) {
	w, ok := r.d.withdrawals[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r memWithdrawals) Settle(_ context.Context, id uint64, status string, adminID uint64, notes *string, at time.Time) error {
	w, ok := r.d.withdrawals[id]
	if !ok || w.Status != models.WithdrawalPending {
		return repository.ErrAlreadySettled
	}
	w.Status = status
	w.ApprovedBy = &adminID
	w.ApprovedAt = &at
	w.AdminNotes = notes
	r.d.withdrawals[id] = w
	return nil
}

func (r memWithdrawals) ListByStatus(_ context.Context, status string, limit int) ([]models.AdminWithdrawalView, error) {
	var out []models.AdminWithdrawalView
	for _, w := range r.d.withdrawals {
		if w.Status == status && len(out) < limit {
			u := r.d.users[w.UserID]
			out = append(out, models.AdminWithdrawalView{WithdrawalRequest: w, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memWithdrawals) ListByUser(_ context.Context, userID uint64) ([]*models.WithdrawalRequest, error) {
	var out []*models.WithdrawalRequest
	for _, w := range r.d.withdrawals {
		if w.UserID == userID {
			w := w
			out = append(out, &w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
