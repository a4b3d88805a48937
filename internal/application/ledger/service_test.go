package ledger

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"farmoracle-backend/internal/application/events"
	"farmoracle-backend/internal/domain"
	"farmoracle-backend/internal/infrastructure/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingNotifier struct {
	mu sync.Mutex
	n  int
}

func (c *countingNotifier) Notify() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *countingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type failingSettler struct{}

func (failingSettler) Settle(ctx context.Context, tx *gorm.DB, s *domain.Settlement) error {
	return errors.New("settlement rail down")
}

func setupLedgerTest(t *testing.T) (*Service, *gorm.DB, *countingNotifier) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	n := &countingNotifier{}
	fixed := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	svc := &Service{DB: db, Notifier: n, Now: func() time.Time { return fixed }}
	return svc, db, n
}

func listingCounter(t *testing.T, db *gorm.DB) uint64 {
	v, err := database.CurrentSequence(db, domain.CounterListing)
	require.NoError(t, err)
	return v
}

func TestList_AssignsSequentialIDs(t *testing.T) {
	svc, db, n := setupLedgerTest(t)
	ctx := context.Background()

	var prev *uint64
	for i := 0; i < 5; i++ {
		c, err := svc.List(ctx, "farmer-a", "Tomatoes", 100, 1000)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), c.Listing.ID)
		if prev != nil {
			assert.Greater(t, c.Listing.ID, *prev)
		}
		id := c.Listing.ID
		prev = &id
		assert.Equal(t, domain.ListingAvailable, c.Listing.Status)
		assert.Nil(t, c.Listing.Buyer)
		assert.Equal(t, domain.EventListed, c.Event.EventType)
	}
	assert.Equal(t, uint64(5), listingCounter(t, db))
	assert.Equal(t, 5, n.count())
}

func TestList_InvalidArgumentsLeaveCounter(t *testing.T) {
	svc, db, n := setupLedgerTest(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		owner    string
		quantity int64
		price    int64
	}{
		{"zero quantity", "farmer-a", 0, 10},
		{"negative quantity", "farmer-a", -3, 10},
		{"zero price", "farmer-a", 10, 0},
		{"negative price", "farmer-a", 10, -1},
		{"empty owner", "  ", 10, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.List(ctx, tc.owner, "Maize", tc.quantity, tc.price)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
			assert.Equal(t, domain.KindInvalidArgument, domain.ErrorKind(err))
		})
	}
	assert.Equal(t, uint64(0), listingCounter(t, db))
	assert.Equal(t, 0, n.count())

	c, err := svc.List(ctx, "farmer-a", "Maize", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), c.Listing.ID)
}

func TestBuy_TomatoesScenario(t *testing.T) {
	svc, db, _ := setupLedgerTest(t)
	ctx := context.Background()

	c, err := svc.List(ctx, "A", "Tomatoes", 100, 1000)
	require.NoError(t, err)
	require.Equal(t, uint64(0), c.Listing.ID)

	bought, err := svc.Buy(ctx, "B", 0, 1000)
	require.NoError(t, err)
	require.NotNil(t, bought.Settlement)
	assert.Equal(t, "A", bought.Settlement.Seller)
	assert.Equal(t, int64(1000), bought.Settlement.Amount)
	assert.Equal(t, domain.ListingSold, bought.Listing.Status)
	require.NotNil(t, bought.Listing.Buyer)
	assert.Equal(t, "B", *bought.Listing.Buyer)

	var acct domain.Account
	require.NoError(t, db.Where("account = ?", "A").First(&acct).Error)
	assert.Equal(t, int64(1000), acct.Balance)

	_, err = svc.Buy(ctx, "C", 0, 1000)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAlreadySold)
	assert.Equal(t, domain.KindAlreadySold, domain.ErrorKind(err))

	var stored domain.Listing
	require.NoError(t, db.Where("id = ?", 0).First(&stored).Error)
	require.NotNil(t, stored.Buyer)
	assert.Equal(t, "B", *stored.Buyer)
}

func TestBuy_SelfPurchaseAndInsufficientPayment(t *testing.T) {
	svc, db, _ := setupLedgerTest(t)
	ctx := context.Background()

	_, err := svc.List(ctx, "A", "Tomatoes", 100, 1000)
	require.NoError(t, err)
	c, err := svc.List(ctx, "A", "Maize", 10, 500)
	require.NoError(t, err)
	require.Equal(t, uint64(1), c.Listing.ID)

	_, err = svc.Buy(ctx, "A", 1, 500)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSelfPurchase)

	_, err = svc.Buy(ctx, "B", 1, 400)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientPayment)

	var stored domain.Listing
	require.NoError(t, db.Where("id = ?", 1).First(&stored).Error)
	assert.Equal(t, domain.ListingAvailable, stored.Status)
	assert.Nil(t, stored.Buyer)
	assert.Nil(t, stored.SoldAt)

	var settlements int64
	require.NoError(t, db.Model(&domain.Settlement{}).Count(&settlements).Error)
	assert.Zero(t, settlements)
	var accounts int64
	require.NoError(t, db.Model(&domain.Account{}).Count(&accounts).Error)
	assert.Zero(t, accounts)
}

func TestBuy_NotFound(t *testing.T) {
	svc, _, _ := setupLedgerTest(t)
	_, err := svc.Buy(context.Background(), "B", 42, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.KindNotFound, domain.ErrorKind(err))
}

func TestBuy_CheckOrder(t *testing.T) {
	svc, _, _ := setupLedgerTest(t)
	ctx := context.Background()
	_, err := svc.List(ctx, "A", "Beans", 1, 100)
	require.NoError(t, err)

	// Owner underpaying reports the payment problem first.
	_, err = svc.Buy(ctx, "A", 0, 50)
	assert.ErrorIs(t, err, domain.ErrInsufficientPayment)

	_, err = svc.Buy(ctx, "B", 0, 100)
	require.NoError(t, err)

	// Once sold, every further buy is AlreadySold whatever else is wrong.
	_, err = svc.Buy(ctx, "A", 0, 1)
	assert.ErrorIs(t, err, domain.ErrAlreadySold)
}

func TestBuy_OverpaymentGoesToSeller(t *testing.T) {
	svc, db, _ := setupLedgerTest(t)
	ctx := context.Background()
	_, err := svc.List(ctx, "A", "Cassava", 5, 300)
	require.NoError(t, err)
	_, err = svc.List(ctx, "A", "Yams", 5, 200)
	require.NoError(t, err)

	c, err := svc.Buy(ctx, "B", 0, 450)
	require.NoError(t, err)
	assert.Equal(t, int64(450), c.Settlement.Amount)
	assert.Equal(t, int64(300), c.Settlement.Price)
	assert.Equal(t, int64(150), c.Settlement.Overpayment)

	_, err = svc.Buy(ctx, "C", 1, 200)
	require.NoError(t, err)

	var acct domain.Account
	require.NoError(t, db.Where("account = ?", "A").First(&acct).Error)
	assert.Equal(t, int64(650), acct.Balance)
}

func TestBuy_SettlementFailureRollsBack(t *testing.T) {
	svc, db, n := setupLedgerTest(t)
	ctx := context.Background()
	_, err := svc.List(ctx, "A", "Sorghum", 3, 90)
	require.NoError(t, err)
	before := n.count()

	svc.Settler = failingSettler{}
	_, err = svc.Buy(ctx, "B", 0, 90)
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.ErrorKind(err))
	assert.Equal(t, before, n.count())

	var stored domain.Listing
	require.NoError(t, db.Where("id = ?", 0).First(&stored).Error)
	assert.Equal(t, domain.ListingAvailable, stored.Status)
	assert.Nil(t, stored.Buyer)

	var purchases int64
	require.NoError(t, db.Model(&domain.BuyerPurchase{}).Count(&purchases).Error)
	assert.Zero(t, purchases)

	eventSeq, err := database.CurrentSequence(db, domain.CounterEvent)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), eventSeq)

	svc.Settler = nil
	_, err = svc.Buy(ctx, "B", 0, 90)
	require.NoError(t, err)
}

func TestBuy_ConcurrentBuyersExactlyOneWins(t *testing.T) {
	svc, db, _ := setupLedgerTest(t)
	ctx := context.Background()
	_, err := svc.List(ctx, "A", "Millet", 10, 100)
	require.NoError(t, err)

	const buyers = 12
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Buy(ctx, "buyer-"+string(rune('a'+i)), 0, 100)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadySold)
	}
	assert.Equal(t, 1, wins)

	var purchases int64
	require.NoError(t, db.Model(&domain.BuyerPurchase{}).Count(&purchases).Error)
	assert.Equal(t, int64(1), purchases)
	var acct domain.Account
	require.NoError(t, db.Where("account = ?", "A").First(&acct).Error)
	assert.Equal(t, int64(100), acct.Balance)
}

func TestList_ConcurrentIDsAreUnique(t *testing.T) {
	svc, db, _ := setupLedgerTest(t)
	ctx := context.Background()

	const listers = 20
	var wg sync.WaitGroup
	ids := make(chan uint64, listers)
	for i := 0; i < listers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := svc.List(ctx, "farmer", "Rice", 1, 1)
			if assert.NoError(t, err) {
				ids <- c.Listing.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[uint64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, listers)
	for i := uint64(0); i < listers; i++ {
		assert.True(t, seen[i])
	}
	assert.Equal(t, uint64(listers), listingCounter(t, db))
}

func TestCommit_CancelledContextHasNoEffect(t *testing.T) {
	svc, db, n := setupLedgerTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.List(ctx, "A", "Okra", 1, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(0), listingCounter(t, db))
	assert.Equal(t, 0, n.count())

	var listings int64
	require.NoError(t, db.Model(&domain.Listing{}).Count(&listings).Error)
	assert.Zero(t, listings)
}

func TestCommit_EventsFormChain(t *testing.T) {
	svc, db, _ := setupLedgerTest(t)
	ctx := context.Background()

	first, err := svc.List(ctx, "A", "Tomatoes", 100, 1000)
	require.NoError(t, err)
	sold, err := svc.Buy(ctx, "B", 0, 1000)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), first.Event.Seq)
	assert.Equal(t, events.GenesisHash, first.Event.PrevHash)
	assert.Equal(t, uint64(1), sold.Event.Seq)
	assert.Equal(t, first.Event.Hash, sold.Event.PrevHash)
	assert.Equal(t, domain.EventSold, sold.Event.EventType)
	assert.JSONEq(t, `{"id":0,"buyer":"B","owner":"A","amount":1000}`, string(sold.Event.Payload))

	res, err := (&events.Service{DB: db}).Verify(ctx)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, uint64(2), res.Checked)
	assert.Equal(t, sold.Event.Hash, res.Head)
}

func TestBuy_BalanceOverflowRollsBack(t *testing.T) {
	svc, db, _ := setupLedgerTest(t)
	ctx := context.Background()
	_, err := svc.List(ctx, "A", "Teff", 1, math.MaxInt64)
	require.NoError(t, err)
	_, err = svc.List(ctx, "A", "Millet", 1, 1)
	require.NoError(t, err)

	_, err = svc.Buy(ctx, "B", 0, math.MaxInt64)
	require.NoError(t, err)

	_, err = svc.Buy(ctx, "C", 1, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	var stored domain.Listing
	require.NoError(t, db.Where("id = ?", 1).First(&stored).Error)
	assert.Equal(t, domain.ListingAvailable, stored.Status)
	assert.Nil(t, stored.Buyer)

	var acct domain.Account
	require.NoError(t, db.Where("account = ?", "A").First(&acct).Error)
	assert.Equal(t, int64(math.MaxInt64), acct.Balance)

	var settlements int64
	require.NoError(t, db.Model(&domain.Settlement{}).Count(&settlements).Error)
	assert.Equal(t, int64(1), settlements)
}

func TestBalanceSettler_CreditsExistingAccount(t *testing.T) {
	svc, db, _ := setupLedgerTest(t)
	ctx := context.Background()
	seeded := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&domain.Account{Account: "A", Balance: 40, UpdatedAt: seeded}).Error)

	_, err := svc.List(ctx, "A", "Okra", 2, 60)
	require.NoError(t, err)
	_, err = svc.List(ctx, "A", "Kale", 2, 25)
	require.NoError(t, err)
	_, err = svc.Buy(ctx, "B", 0, 60)
	require.NoError(t, err)
	_, err = svc.Buy(ctx, "B", 1, 25)
	require.NoError(t, err)

	var accts []domain.Account
	require.NoError(t, db.Where("account = ?", "A").Find(&accts).Error)
	require.Len(t, accts, 1)
	assert.Equal(t, int64(125), accts[0].Balance)
	assert.True(t, accts[0].UpdatedAt.After(seeded))
}
