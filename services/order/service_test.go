package order

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mbilalsh/storefront-api/apperrors"
	"github.com/mbilalsh/storefront-api/models"
	"github.com/mbilalsh/storefront-api/services/gate"
	"github.com/mbilalsh/storefront-api/services/inventory"
)

type nopSender struct{}

func (nopSender) SendLowStockAlert(uint)      {}
func (nopSender) SendOrderConfirmation(uint)  {}
func (nopSender) SendOrderStatusChanged(uint) {}

type recordingSender struct {
	mu            sync.Mutex
	confirmations []uint
}

func (r *recordingSender) SendLowStockAlert(uint) {}

func (r *recordingSender) SendOrderConfirmation(id uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmations = append(r.confirmations, id)
}

func (r *recordingSender) SendOrderStatusChanged(uint) {}

func (r *recordingSender) confirmed() []uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint(nil), r.confirmations...)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.GuestUser{},
		&models.Product{},
		&models.InventoryRecord{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	))
	return db
}

func newTestServices(t *testing.T) (*Service, *inventory.Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	log := zap.NewNop().Sugar()
	stock := inventory.NewService(gate.New(), nopSender{}, log)
	svc := NewService(gate.New(), stock, GormCartStore{}, nopSender{}, log)
	return svc, stock, db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price float64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, Price: price, Stock: stock, IsAvailable: true}
	require.NoError(t, db.Create(product).Error)
	record := &models.InventoryRecord{
		ProductID:         product.ID,
		Quantity:          stock,
		MinimumStockLevel: models.DefaultMinimumStockLevel,
		MaximumStockLevel: models.DefaultMaximumStockLevel,
	}
	require.NoError(t, db.Create(record).Error)
	return product
}

func seedUser(t *testing.T, db *gorm.DB, id string) *models.User {
	t.Helper()
	user := &models.User{ID: id, Email: id + "@example.com", Name: "Test Buyer", LoyaltyTier: models.LoyaltyTierBronze}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedCart(t *testing.T, db *gorm.DB, ownerID string, lines map[*models.Product]int) *models.Cart {
	t.Helper()
	cart := &models.Cart{OwnerID: ownerID}
	require.NoError(t, db.Create(cart).Error)
	for product, qty := range lines {
		item := &models.CartItem{
			CartID:      cart.CartID,
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    qty,
			AddedAt:     time.Now(),
		}
		require.NoError(t, db.Create(item).Error)
	}
	return cart
}

func productStock(t *testing.T, db *gorm.DB, productID uint) (int, int) {
	t.Helper()
	var product models.Product
	require.NoError(t, db.First(&product, "id = ?", productID).Error)
	var record models.InventoryRecord
	require.NoError(t, db.Where("product_id = ?", productID).First(&record).Error)
	return product.Stock, record.Quantity
}

func defaultRequest(userID string) CreateOrderRequest {
	return CreateOrderRequest{
		UserID:        userID,
		PaymentMethod: "card",
		Shipping:      ShippingInfo{Name: "Test Buyer", Street: "1 Main St", City: "Lahore"},
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _, db := newTestServices(t)

	_, err := svc.CreateOrder(db, CreateOrderRequest{PaymentMethod: "card"})
	var validation *apperrors.ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = svc.CreateOrder(db, CreateOrderRequest{UserID: "u1"})
	assert.ErrorAs(t, err, &validation)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	svc, _, db := newTestServices(t)
	seedUser(t, db, "u1")

	_, err := svc.CreateOrder(db, defaultRequest("u1"))
	assert.ErrorIs(t, err, apperrors.ErrEmptyCart)
}

func TestCreateOrderReportsEveryShortProduct(t *testing.T) {
	svc, _, db := newTestServices(t)
	seedUser(t, db, "u1")

	p1 := seedProduct(t, db, "P1", 10, 1)
	p2 := seedProduct(t, db, "P2", 20, 0)
	p3 := seedProduct(t, db, "P3", 30, 50)
	seedCart(t, db, "u1", map[*models.Product]int{p1: 2, p2: 1, p3: 1})

	_, err := svc.CreateOrder(db, defaultRequest("u1"))

	var insufficient *apperrors.InsufficientInventoryError
	require.ErrorAs(t, err, &insufficient)
	assert.ElementsMatch(t, []string{"P1", "P2"}, insufficient.Products)

	// nothing persisted, nothing deducted
	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.EqualValues(t, 0, orders)
	stock, _ := productStock(t, db, p3.ID)
	assert.Equal(t, 50, stock)
}

func TestCreateOrder(t *testing.T) {
	svc, _, db := newTestServices(t)
	seedUser(t, db, "u1")

	p1 := seedProduct(t, db, "P1", 10, 5)
	p2 := seedProduct(t, db, "P2", 25, 8)
	cart := seedCart(t, db, "u1", map[*models.Product]int{p1: 2, p2: 1})
	cart.DiscountCode = "WELCOME5"
	cart.DiscountAmount = 5
	require.NoError(t, db.Save(cart).Error)

	order, err := svc.CreateOrder(db, defaultRequest("u1"))
	require.NoError(t, err)
	require.NotNil(t, order)

	// 2*10 + 1*25 - 5
	assert.Equal(t, 40.0, order.TotalAmount)
	assert.Equal(t, 5.0, order.DiscountAmount)
	assert.Equal(t, "WELCOME5", order.DiscountCode)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Regexp(t, regexp.MustCompile(`^ORD-\d{8}-[0-9A-F]{8}$`), order.OrderNumber)
	assert.Len(t, order.Items, 2)

	// stock deducted and mirrored
	stock, qty := productStock(t, db, p1.ID)
	assert.Equal(t, 3, stock)
	assert.Equal(t, 3, qty)
	stock, qty = productStock(t, db, p2.ID)
	assert.Equal(t, 7, stock)
	assert.Equal(t, 7, qty)

	// cart and discount cleared
	var items int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("cart_id = ?", cart.CartID).Count(&items).Error)
	assert.EqualValues(t, 0, items)
	var fresh models.Cart
	require.NoError(t, db.First(&fresh, "cart_id = ?", cart.CartID).Error)
	assert.Empty(t, fresh.DiscountCode)
	assert.Zero(t, fresh.DiscountAmount)

	// loyalty updated best-effort
	var user models.User
	require.NoError(t, db.First(&user, "id = ?", "u1").Error)
	assert.Equal(t, 40.0, user.LifetimeSpend)
}

func TestCreateOrderSnapshotsAreImmutable(t *testing.T) {
	svc, _, db := newTestServices(t)
	seedUser(t, db, "u1")

	p1 := seedProduct(t, db, "P1", 10, 5)
	seedCart(t, db, "u1", map[*models.Product]int{p1: 1})

	order, err := svc.CreateOrder(db, defaultRequest("u1"))
	require.NoError(t, err)

	// catalog edits after the fact must not touch the snapshot
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", p1.ID).
		Updates(map[string]interface{}{"name": "Renamed", "price": 999.0}).Error)

	var item models.OrderItem
	require.NoError(t, db.First(&item, "order_id = ?", order.ID).Error)
	assert.Equal(t, "P1", item.ProductName)
	assert.Equal(t, 10.0, item.UnitPrice)
}

// failingStock wraps the real inventory service but refuses to deduct
// one product, simulating a persistence failure mid-workflow.
type failingStock struct {
	*inventory.Service
	failID uint
}

func (f failingStock) Deduct(db *gorm.DB, productID uint, qty int) bool {
	if productID == f.failID {
		return false
	}
	return f.Service.Deduct(db, productID, qty)
}

func TestCreateOrderIsAtomicWhenDeductFails(t *testing.T) {
	db := newTestDB(t)
	log := zap.NewNop().Sugar()
	stock := inventory.NewService(gate.New(), nopSender{}, log)
	seedUser(t, db, "u1")

	p1 := seedProduct(t, db, "P1", 10, 5)
	p2 := seedProduct(t, db, "P2", 20, 5)
	seedCart(t, db, "u1", map[*models.Product]int{p1: 2, p2: 1})

	svc := NewService(gate.New(), failingStock{Service: stock, failID: p2.ID}, GormCartStore{}, nopSender{}, log)

	_, err := svc.CreateOrder(db, defaultRequest("u1"))
	var insufficient *apperrors.InsufficientInventoryError
	require.ErrorAs(t, err, &insufficient)

	// no order or item rows survive the rollback
	var orders, items int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&items).Error)
	assert.EqualValues(t, 0, orders)
	assert.EqualValues(t, 0, items)

	// the earlier deduction of P1 is rolled back too
	stockP1, qtyP1 := productStock(t, db, p1.ID)
	assert.Equal(t, 5, stockP1)
	assert.Equal(t, 5, qtyP1)

	// cart untouched
	var cartItems int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&cartItems).Error)
	assert.EqualValues(t, 2, cartItems)
}

func TestCancelOrderRestoresStock(t *testing.T) {
	svc, _, db := newTestServices(t)
	seedUser(t, db, "u1")

	p1 := seedProduct(t, db, "P1", 10, 5)
	p2 := seedProduct(t, db, "P2", 20, 10)
	seedCart(t, db, "u1", map[*models.Product]int{p1: 1, p2: 3})

	order, err := svc.CreateOrder(db, defaultRequest("u1"))
	require.NoError(t, err)

	assert.True(t, svc.CancelOrder(db, order.ID, "u1"))

	var cancelled models.Order
	require.NoError(t, db.First(&cancelled, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	stock, qty := productStock(t, db, p1.ID)
	assert.Equal(t, 5, stock)
	assert.Equal(t, 5, qty)
	stock, qty = productStock(t, db, p2.ID)
	assert.Equal(t, 10, stock)
	assert.Equal(t, 10, qty)
}

func TestCancelOrderOwnership(t *testing.T) {
	svc, _, db := newTestServices(t)
	seedUser(t, db, "u1")

	p1 := seedProduct(t, db, "P1", 10, 5)
	seedCart(t, db, "u1", map[*models.Product]int{p1: 1})

	order, err := svc.CreateOrder(db, defaultRequest("u1"))
	require.NoError(t, err)

	assert.False(t, svc.CancelOrder(db, order.ID, "someone-else"))

	var fresh models.Order
	require.NoError(t, db.First(&fresh, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusPending, fresh.Status)

	// no caller id skips the ownership check (admin path)
	assert.True(t, svc.CancelOrder(db, order.ID, ""))
}

func TestCancelOrderTerminalStatus(t *testing.T) {
	svc, _, db := newTestServices(t)
	seedUser(t, db, "u1")

	p1 := seedProduct(t, db, "P1", 10, 5)
	seedCart(t, db, "u1", map[*models.Product]int{p1: 1})

	order, err := svc.CreateOrder(db, defaultRequest("u1"))
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("status", models.OrderStatusDelivered).Error)

	assert.False(t, svc.CancelOrder(db, order.ID, "u1"))

	// stock stays deducted
	stock, _ := productStock(t, db, p1.ID)
	assert.Equal(t, 4, stock)
}

func TestCancelOrderUnknown(t *testing.T) {
	svc, _, db := newTestServices(t)
	assert.False(t, svc.CancelOrder(db, 4242, ""))
}

func TestGuestOrderOwnership(t *testing.T) {
	svc, _, db := newTestServices(t)

	p1 := seedProduct(t, db, "P1", 10, 5)
	seedCart(t, db, "guest_abc", map[*models.Product]int{p1: 1})

	req := CreateOrderRequest{
		SessionID:     "guest_abc",
		PaymentMethod: "cod",
		Shipping:      ShippingInfo{Name: "Guest", Street: "1 Main St", City: "Lahore"},
	}
	order, err := svc.CreateOrder(db, req)
	require.NoError(t, err)
	assert.Equal(t, "guest_abc", order.BuyerID())

	assert.False(t, svc.CancelOrder(db, order.ID, "guest_other"))
	assert.True(t, svc.CancelOrder(db, order.ID, "guest_abc"))
}

func TestUpdateOrderStatus(t *testing.T) {
	svc, _, db := newTestServices(t)
	seedUser(t, db, "u1")

	p1 := seedProduct(t, db, "P1", 10, 5)
	seedCart(t, db, "u1", map[*models.Product]int{p1: 1})
	order, err := svc.CreateOrder(db, defaultRequest("u1"))
	require.NoError(t, err)

	// pending -> delivered is not allowed
	err = svc.UpdateOrderStatus(db, order.ID, models.OrderStatusDelivered)
	var validation *apperrors.ValidationError
	assert.ErrorAs(t, err, &validation)

	require.NoError(t, svc.UpdateOrderStatus(db, order.ID, models.OrderStatusProcessing))
	require.NoError(t, svc.UpdateOrderStatus(db, order.ID, models.OrderStatusDelivered))

	// delivered is terminal
	err = svc.UpdateOrderStatus(db, order.ID, models.OrderStatusCancelled)
	assert.ErrorAs(t, err, &validation)

	assert.ErrorIs(t, svc.UpdateOrderStatus(db, 4242, models.OrderStatusProcessing), apperrors.ErrOrderNotFound)
}

func TestUpdatePaymentStatusAutoAdvancesOrder(t *testing.T) {
	svc, _, db := newTestServices(t)
	seedUser(t, db, "u1")

	p1 := seedProduct(t, db, "P1", 10, 5)
	seedCart(t, db, "u1", map[*models.Product]int{p1: 1})
	order, err := svc.CreateOrder(db, defaultRequest("u1"))
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePaymentStatus(db, order.ID, models.PaymentStatusCompleted))

	var fresh models.Order
	require.NoError(t, db.First(&fresh, "id = ?", order.ID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, fresh.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, fresh.Status, "completed payment must advance a pending order")
}

func TestUpdatePaymentStatusInvalidTransition(t *testing.T) {
	svc, _, db := newTestServices(t)
	seedUser(t, db, "u1")

	p1 := seedProduct(t, db, "P1", 10, 5)
	seedCart(t, db, "u1", map[*models.Product]int{p1: 1})
	order, err := svc.CreateOrder(db, defaultRequest("u1"))
	require.NoError(t, err)

	// pending -> refunded skips completed
	err = svc.UpdatePaymentStatus(db, order.ID, models.PaymentStatusRefunded)
	var validation *apperrors.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestGenerateOrderNumberRegeneratesOnCollision(t *testing.T) {
	db := newTestDB(t)

	suffixes := []string{"AAAAAAAA", "BBBBBBBB"}
	calls := 0
	orig := newSuffix
	newSuffix = func() string {
		s := suffixes[calls]
		calls++
		return s
	}
	t.Cleanup(func() { newSuffix = orig })

	date := time.Now().Format("20060102")
	require.NoError(t, db.Create(&models.Order{
		OrderNumber:   "ORD-" + date + "-AAAAAAAA",
		UserID:        "u1",
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}).Error)

	number, err := generateOrderNumber(db)
	require.NoError(t, err)
	assert.Equal(t, "ORD-"+date+"-BBBBBBBB", number)
	assert.Equal(t, 2, calls, "the taken number must be regenerated exactly once")
}

func TestGenerateOrderNumberGivesUpAfterRepeatedCollisions(t *testing.T) {
	db := newTestDB(t)

	calls := 0
	orig := newSuffix
	newSuffix = func() string {
		calls++
		return "AAAAAAAA"
	}
	t.Cleanup(func() { newSuffix = orig })

	date := time.Now().Format("20060102")
	require.NoError(t, db.Create(&models.Order{
		OrderNumber:   "ORD-" + date + "-AAAAAAAA",
		UserID:        "u1",
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}).Error)

	_, err := generateOrderNumber(db)
	assert.Error(t, err)
	assert.Equal(t, 5, calls)
}

func TestCreateOrderJoinedToCallerTransactionSkipsSideEffects(t *testing.T) {
	db := newTestDB(t)
	log := zap.NewNop().Sugar()
	sender := &recordingSender{}
	stock := inventory.NewService(gate.New(), sender, log)
	svc := NewService(gate.New(), stock, GormCartStore{}, sender, log)

	broadcasts := 0
	svc.OnOrderChanged = func(models.Order) { broadcasts++ }

	seedUser(t, db, "u1")
	p1 := seedProduct(t, db, "P1", 10, 5)
	seedCart(t, db, "u1", map[*models.Product]int{p1: 1})

	err := db.Transaction(func(outer *gorm.DB) error {
		order, err := svc.CreateOrder(outer, defaultRequest("u1"))
		require.NoError(t, err)
		require.NotNil(t, order)
		return nil
	})
	require.NoError(t, err)

	// the joined call leaves follow-ups to the transaction owner
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sender.confirmed())
	assert.Zero(t, broadcasts)

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", "u1").Error)
	assert.Zero(t, user.LifetimeSpend)
}

func TestOrderNumbersAreFreshPerOrder(t *testing.T) {
	svc, _, db := newTestServices(t)
	seedUser(t, db, "u1")

	p1 := seedProduct(t, db, "P1", 10, 50)

	numbers := map[string]bool{}
	for i := 0; i < 5; i++ {
		seedCart(t, db, "u1", map[*models.Product]int{p1: 1})
		order, err := svc.CreateOrder(db, defaultRequest("u1"))
		require.NoError(t, err)
		assert.False(t, numbers[order.OrderNumber], "duplicate order number issued")
		numbers[order.OrderNumber] = true
		require.NoError(t, db.Delete(&models.Cart{}, "owner_id = ?", "u1").Error)
	}
}
