package sandbox

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"reward-core/internal/model"
	"reward-core/pkg/address"
	"reward-core/pkg/errno"
)

const (
	explorerTxURL = "https://explorer.celo.org/mainnet/tx/"
	transferGas   = 65000
	maxRetries    = 3
)

type project struct {
	seed        ProjectSeed
	rewardState string
	distributed bool
	wallets     map[int64]*model.SchoolWallet
}

type distribution struct {
	id        string
	projectID int64
	title     string
	txs       []*model.Transaction
	schoolIDs []int64
}

// Store is the in-memory state of the sandbox backend. Safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	admin       model.LoginUser
	password    string
	tokens      map[string]bool
	pool        model.PoolInfo
	projects    map[int64]*project
	order       []int64
	failSchools map[int64]bool

	distributions map[string]*distribution
	audit         []*model.AuditRecord
	nextID        int64
	block         uint64
}

func NewStore(seed Seed) *Store {
	s := &Store{
		now:           time.Now,
		admin:         model.LoginUser{ID: 1, Email: seed.AdminEmail, Role: "admin"},
		password:      seed.AdminPassword,
		tokens:        make(map[string]bool),
		pool:          seed.Pool,
		projects:      make(map[int64]*project),
		failSchools:   make(map[int64]bool),
		distributions: make(map[string]*distribution),
		nextID:        1,
		block:         24_000_000,
	}
	for _, id := range seed.FailSchools {
		s.failSchools[id] = true
	}
	for _, ps := range seed.Projects {
		p := &project{seed: ps, rewardState: model.RewardStatusPending, wallets: make(map[int64]*model.SchoolWallet)}
		for _, sc := range ps.Schools {
			if sc.Wallet == "" {
				continue
			}
			p.wallets[sc.ID] = &model.SchoolWallet{
				ID:            s.id(),
				SchoolID:      sc.ID,
				SchoolName:    sc.Name,
				WalletAddress: sc.Wallet,
				SubmittedBy:   seed.AdminEmail,
				CreatedAt:     s.now().UTC(),
				IsValidated:   sc.Validated,
			}
		}
		s.refreshRewardStateLocked(p)
		s.projects[ps.ID] = p
		s.order = append(s.order, ps.ID)
	}
	return s
}

func (s *Store) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// Login checks the admin credentials and issues a JWT shaped token.
func (s *Store) Login(email, password string) (*model.LoginResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !strings.EqualFold(email, s.admin.Email) || password != s.password {
		return nil, false
	}
	access := "sbx." + strings.ReplaceAll(uuid.NewString(), "-", "") + ".sig"
	s.tokens[access] = true
	return &model.LoginResponse{Access: access, Refresh: "sbx." + uuid.NewString() + ".refresh", User: s.admin}, true
}

// Authorized reports whether token was issued by Login.
func (s *Store) Authorized(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[token]
}

// RevokeAll invalidates every issued token.
func (s *Store) RevokeAll() {
	s.mu.Lock()
	s.tokens = make(map[string]bool)
	s.mu.Unlock()
}

func (s *Store) Projects() []model.RewardProject {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.RewardProject, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.projectViewLocked(s.projects[id]))
	}
	return out
}

func (s *Store) projectViewLocked(p *project) model.RewardProject {
	view := model.RewardProject{
		ID:                   p.seed.ID,
		Title:                p.seed.Title,
		RewardPerParticipant: p.seed.RewardPerParticipant,
		EndDate:              p.seed.EndDate,
		Status:               p.seed.Status,
		RewardStatus:         p.rewardState,
		OfferRewards:         p.seed.OfferRewards,
		RewardsDistributed:   p.distributed,
	}
	for _, sc := range p.seed.Schools {
		ref := model.SchoolRef{ID: sc.ID, Name: sc.Name}
		if sc.ID == p.seed.LeadSchoolID {
			lead := ref
			view.LeadSchool = &lead
		}
		view.ParticipatingSchools = append(view.ParticipatingSchools, ref)
		view.EstimatedParticipants += sc.Participants
	}
	view.EstimatedTotalCost = p.seed.RewardPerParticipant.Mul(decimal.NewFromInt(int64(view.EstimatedParticipants)))
	return view
}

func (s *Store) project(id int64) (*project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, errno.ErrProjectNotFound.WithMessage(fmt.Sprintf("Project %d not found", id))
	}
	return p, nil
}

func (s *Store) Wallets(projectID int64) ([]model.SchoolWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.project(projectID)
	if err != nil {
		return nil, err
	}
	return s.walletsLocked(p), nil
}

func (s *Store) walletsLocked(p *project) []model.SchoolWallet {
	out := make([]model.SchoolWallet, 0, len(p.wallets))
	for _, sc := range p.seed.Schools {
		if w, ok := p.wallets[sc.ID]; ok {
			out = append(out, *w)
		}
	}
	return out
}

// UpsertWallets stores the submitted addresses. Well formed addresses are validated at once.
func (s *Store) UpsertWallets(projectID int64, subs []model.WalletSubmission, by string) ([]model.SchoolWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.project(projectID)
	if err != nil {
		return nil, err
	}
	if p.distributed {
		return nil, errno.ErrAlreadyExecuted.WithMessage("Rewards for this project were already distributed")
	}

	// 1. 全部校验通过才写入
	for _, sub := range subs {
		if schoolOf(p, sub.SchoolID) == nil {
			return nil, errno.ErrSchoolNotInProject.WithMessage(fmt.Sprintf("School %d does not participate in this project", sub.SchoolID))
		}
		if _, err := address.Validate(sub.WalletAddress); err != nil {
			return nil, err
		}
	}

	// 2. 写入
	out := make([]model.SchoolWallet, 0, len(subs))
	for _, sub := range subs {
		sc := schoolOf(p, sub.SchoolID)
		w, ok := p.wallets[sub.SchoolID]
		if !ok {
			w = &model.SchoolWallet{ID: s.id(), SchoolID: sc.ID, SchoolName: sc.Name}
			p.wallets[sub.SchoolID] = w
		}
		w.WalletAddress = strings.TrimSpace(sub.WalletAddress)
		w.SubmittedBy = by
		w.CreatedAt = s.now().UTC()
		w.IsValidated = true
		out = append(out, *w)
	}
	s.refreshRewardStateLocked(p)
	return out, nil
}

func schoolOf(p *project, schoolID int64) *SchoolSeed {
	for i := range p.seed.Schools {
		if p.seed.Schools[i].ID == schoolID {
			return &p.seed.Schools[i]
		}
	}
	return nil
}

func (s *Store) refreshRewardStateLocked(p *project) {
	switch {
	case p.distributed:
		p.rewardState = model.RewardStatusCompleted
	case s.walletsReadyLocked(p):
		p.rewardState = model.RewardStatusReady
	default:
		p.rewardState = model.RewardStatusPending
	}
}

func (s *Store) walletsReadyLocked(p *project) bool {
	for _, sc := range p.seed.Schools {
		if model.StatusOf(p.wallets[sc.ID]) != model.WalletReady {
			return false
		}
	}
	return len(p.seed.Schools) > 0
}

func (s *Store) Preview(projectID int64) (*model.DistributionPreview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.project(projectID)
	if err != nil {
		return nil, err
	}
	return s.previewLocked(p), nil
}

func (s *Store) previewLocked(p *project) *model.DistributionPreview {
	pool := s.pool
	pv := &model.DistributionPreview{
		ProjectID:    p.seed.ID,
		ProjectTitle: p.seed.Title,
		PoolInfo:     &pool,
	}
	total := decimal.Zero
	for _, sc := range p.seed.Schools {
		amount := p.seed.RewardPerParticipant.Mul(decimal.NewFromInt(int64(sc.Participants)))
		row := model.SchoolDistribution{SchoolID: sc.ID, SchoolName: sc.Name, Participants: sc.Participants, RewardAmount: amount}
		w := p.wallets[sc.ID]
		switch model.StatusOf(w) {
		case model.WalletMissing:
			pv.Summary.SchoolsMissingWallets++
		case model.WalletPending:
			pv.Summary.SchoolsWithWallets++
			row.WalletAddress = w.WalletAddress
			pv.ValidationErrors = append(pv.ValidationErrors, model.ValidationError{SchoolID: sc.ID, SchoolName: sc.Name, Message: "Wallet address has not been validated"})
		case model.WalletReady:
			pv.Summary.SchoolsWithWallets++
			row.WalletAddress = w.WalletAddress
			row.WalletReady = true
		}
		pv.Summary.TotalParticipants += sc.Participants
		total = total.Add(amount)
		pv.Distributions = append(pv.Distributions, row)
	}
	pv.Summary.TotalSchools = len(p.seed.Schools)
	pv.Summary.TotalAmount = total

	// 奖池校验挂在 school_id = 0 上
	if p.distributed {
		pv.ValidationErrors = append(pv.ValidationErrors, model.ValidationError{Message: "Rewards for this project were already distributed"})
	}
	if total.GreaterThan(pool.Balance) {
		pv.ValidationErrors = append(pv.ValidationErrors, model.ValidationError{Message: "Insufficient pool balance"})
	}
	if total.GreaterThan(pool.RemainingMonthly()) {
		pv.ValidationErrors = append(pv.ValidationErrors, model.ValidationError{Message: "Monthly distribution limit exceeded"})
	}
	return pv
}

// Distribute executes a ready preview: one pending transaction per school.
func (s *Store) Distribute(projectID int64, req model.DistributeRequest, approvedBy string) (*model.DistributionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.project(projectID)
	if err != nil {
		return nil, err
	}
	if !req.ConfirmDistribution {
		return nil, errno.ErrBind.WithMessage("confirm_distribution must be true")
	}
	if p.distributed {
		return nil, errno.ErrAlreadyExecuted.WithMessage("Rewards for this project were already distributed")
	}
	pv := s.previewLocked(p)
	if !pv.Ready() {
		msg := fmt.Sprintf("%d schools are missing wallet addresses", pv.Summary.SchoolsMissingWallets)
		if len(pv.ValidationErrors) > 0 {
			msg = pv.ValidationErrors[0].Message
		}
		return nil, errno.ErrNotReady.WithMessage(msg)
	}

	d := &distribution{id: uuid.NewString(), projectID: p.seed.ID, title: p.seed.Title}
	result := &model.DistributionResult{
		DistributionID: model.ID(d.id),
		Message:        fmt.Sprintf("Distribution of %s G$ to %d schools started", pv.Summary.TotalAmount.String(), len(pv.Distributions)),
	}
	now := s.now().UTC()
	for _, row := range pv.Distributions {
		hash := txHash()
		tx := &model.Transaction{
			ID:              s.id(),
			SchoolName:      row.SchoolName,
			WalletAddress:   row.WalletAddress,
			Amount:          row.RewardAmount,
			TransactionHash: hash,
			Status:          model.StatusPending,
			ExplorerURL:     explorerTxURL + hash,
		}
		d.txs = append(d.txs, tx)
		d.schoolIDs = append(d.schoolIDs, row.SchoolID)
		result.Transactions = append(result.Transactions, model.BlockchainTransaction{
			SchoolID:        row.SchoolID,
			SchoolName:      row.SchoolName,
			WalletAddress:   row.WalletAddress,
			Amount:          row.RewardAmount,
			TransactionHash: hash,
			ExplorerURL:     tx.ExplorerURL,
			Status:          model.StatusPending,
		})
		s.audit = append(s.audit, &model.AuditRecord{
			ID:              s.id(),
			DistributionID:  model.ID(d.id),
			ProjectID:       p.seed.ID,
			ProjectTitle:    p.seed.Title,
			SchoolID:        row.SchoolID,
			SchoolName:      row.SchoolName,
			WalletAddress:   row.WalletAddress,
			Amount:          row.RewardAmount,
			TransactionHash: hash,
			Status:          model.StatusPending,
			ApprovedBy:      approvedBy,
			PoolAddress:     s.pool.PoolAddress,
			NFTID:           fmt.Sprintf("GC-%d-%d", p.seed.ID, row.SchoolID),
			ExplorerURL:     tx.ExplorerURL,
			CreatedAt:       now,
		})
	}
	s.distributions[d.id] = d

	p.distributed = true
	s.refreshRewardStateLocked(p)
	s.pool.Balance = s.pool.Balance.Sub(pv.Summary.TotalAmount)
	s.pool.MonthlyUsed = s.pool.MonthlyUsed.Add(pv.Summary.TotalAmount)
	return result, nil
}

func txHash() string {
	a, b := uuid.New(), uuid.New()
	return common.BytesToHash(append(a[:], b[:]...)).Hex()
}

// Status advances every unsettled transaction by one step and reports the result.
// pending -> processing -> completed, or failed after the retries of a failing school.
func (s *Store) Status(distributionID string) (*model.DistributionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.distributions[distributionID]
	if !ok {
		return nil, errno.ErrNotFound.WithMessage("Distribution not found")
	}

	for i, tx := range d.txs {
		s.advanceLocked(d, tx, d.schoolIDs[i])
	}

	st := &model.DistributionStatus{
		DistributionID:    model.ID(d.id),
		ProjectTitle:      d.title,
		TotalTransactions: len(d.txs),
	}
	for _, tx := range d.txs {
		switch tx.Status {
		case model.StatusPending:
			st.PendingTransactions++
		case model.StatusProcessing:
			st.ProcessingTransactions++
		case model.StatusCompleted:
			st.CompletedTransactions++
		case model.StatusFailed:
			st.FailedTransactions++
		}
		st.Transactions = append(st.Transactions, *tx)
	}
	switch {
	case st.PendingTransactions == st.TotalTransactions:
		st.OverallStatus = model.StatusPending
	case st.PendingTransactions+st.ProcessingTransactions > 0:
		st.OverallStatus = model.StatusProcessing
	case st.FailedTransactions > 0:
		st.OverallStatus = model.StatusFailed
	default:
		st.OverallStatus = model.StatusCompleted
	}
	return st, nil
}

func (s *Store) advanceLocked(d *distribution, tx *model.Transaction, schoolID int64) {
	switch tx.Status {
	case model.StatusPending:
		tx.Status = model.StatusProcessing
	case model.StatusProcessing:
		if s.failSchools[schoolID] && tx.RetryCount < maxRetries {
			tx.RetryCount++
			if tx.RetryCount == maxRetries {
				tx.Status = model.StatusFailed
				tx.ErrorMessage = "transaction reverted: transfer rejected by token contract"
			}
			break
		}
		s.block++
		ts := s.now().UTC()
		tx.Status = model.StatusCompleted
		tx.BlockNumber = s.block
		tx.GasUsed = transferGas
		tx.Timestamp = &ts
	default:
		return
	}
	s.syncAuditLocked(d, tx)
}

func (s *Store) syncAuditLocked(d *distribution, tx *model.Transaction) {
	for _, r := range s.audit {
		if r.DistributionID.String() == d.id && r.TransactionHash == tx.TransactionHash {
			r.Status = tx.Status
			r.BlockNumber = tx.BlockNumber
			r.GasUsed = tx.GasUsed
		}
	}
}

// AuditFilter mirrors the audit-trail query string.
type AuditFilter struct {
	ProjectID int64
	Status    string
	StartDate *time.Time
}

// Audit returns the filtered records, newest first, and the total before paging.
// page and limit <= 0 return everything.
func (s *Store) Audit(f AuditFilter, page, limit int) ([]model.AuditRecord, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []model.AuditRecord
	for _, r := range s.audit {
		if f.ProjectID > 0 && r.ProjectID != f.ProjectID {
			continue
		}
		if f.Status != "" && f.Status != "all" && string(r.Status) != f.Status {
			continue
		}
		if f.StartDate != nil && r.CreatedAt.Before(*f.StartDate) {
			continue
		}
		matched = append(matched, *r)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := len(matched)
	if page <= 0 || limit <= 0 {
		return matched, total
	}
	start := (page - 1) * limit
	if start >= total {
		return []model.AuditRecord{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total
}
