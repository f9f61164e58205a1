package api

import (
	"errors"   // Error handling
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String helpers
	"time"     // Timestamps

	"loyalty_system/internal/domain"
	"loyalty_system/internal/ledger"
	"loyalty_system/internal/middleware"

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus logging library
	"gorm.io/gorm"               // GORM ORM library
)

// transactionResponse projects a ledger entry for listings and lookups.
// Promotions, User and CreatedBy must be preloaded.
func transactionResponse(t *domain.Transaction) gin.H {
	promotionIDs := make([]uint, 0, len(t.Promotions))
	for i := range t.Promotions {
		promotionIDs = append(promotionIDs, t.Promotions[i].ID)
	}
	resp := gin.H{
		"id":           t.ID,
		"utorid":       t.User.Utorid,
		"type":         strings.ToLower(t.Type),
		"amount":       t.Points,
		"spent":        t.Spent,
		"promotionIds": promotionIDs,
		"suspicious":   t.Suspicious,
		"remark":       t.Remark,
		"createdBy":    t.CreatedBy.Utorid,
		"relatedId":    t.RelatedID(),
		"createdAt":    t.CreatedAt.Format(time.RFC3339),
	}
	if t.Type == domain.TxRedemption {
		resp["redeemed"] = t.Redeemed
	}
	return resp
}

// CreateTransactionHandler records a purchase (cashier+) or an adjustment
// (manager+) against a user identified by utorid.
func CreateTransactionHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceCashier) {
			return
		}
		creator := middleware.CurrentUser(c)

		var req struct {
			Utorid       string   `json:"utorid"`
			Type         string   `json:"type"`
			Spent        *float64 `json:"spent"`
			Amount       *float64 `json:"amount"`
			RelatedID    *uint    `json:"relatedId"`
			PromotionIDs []uint   `json:"promotionIds"`
			Remark       string   `json:"remark"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		var user domain.User
		if err := db.Where("utorid = ?", req.Utorid).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		switch req.Type {
		case "purchase":
			createPurchase(c, db, creator, &user, req.Spent, req.PromotionIDs, req.Remark)
		case "adjustment":
			if !requireClearance(c, domain.ClearanceManager) {
				return
			}
			createAdjustment(c, db, creator, &user, req.Amount, req.RelatedID, req.PromotionIDs, req.Remark)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be purchase or adjustment"})
		}
	}
}

// loadPromotions fetches the requested promotions and validates the time
// window and minSpending against the purchase. checkUsage additionally
// enforces the one-use rule for ONETIME promotions; adjustments skip it.
func loadPromotions(c *gin.Context, db *gorm.DB, ids []uint, userID uint, spent *float64, checkUsage bool) ([]domain.Promotion, bool) {
	if len(ids) == 0 {
		return nil, true
	}
	var promos []domain.Promotion
	if err := db.Where("id IN ?", ids).Find(&promos).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load promotions"})
		return nil, false
	}
	if len(promos) != len(ids) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "One or more promotions do not exist"})
		return nil, false
	}
	now := time.Now()
	for i := range promos {
		p := &promos[i]
		if !p.Active(now) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Promotion " + p.Name + " is not active"})
			return nil, false
		}
		if spent != nil && p.MinSpending != nil && *spent < *p.MinSpending {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Purchase does not meet the minimum spending for " + p.Name})
			return nil, false
		}
		if checkUsage && p.Type == domain.PromotionOneTime {
			used, err := promotionUsed(db, p.ID, userID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check promotion usage"})
				return nil, false
			}
			if used {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Promotion " + p.Name + " has already been used"})
				return nil, false
			}
		}
	}
	return promos, true
}

func createPurchase(c *gin.Context, db *gorm.DB, creator, user *domain.User, spent *float64, promotionIDs []uint, remark string) {
	if spent == nil || *spent <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "spent must be a positive number"})
		return
	}
	if promotionIDs == nil {
		promotionIDs = []uint{}
	}
	promos, ok := loadPromotions(c, db, promotionIDs, user.ID, spent, true)
	if !ok {
		return
	}

	promoPtrs := make([]*domain.Promotion, 0, len(promos))
	for i := range promos {
		promoPtrs = append(promoPtrs, &promos[i])
	}
	total := ledger.PurchaseTotal(*spent, promoPtrs)

	tx := domain.Transaction{
		Type:        domain.TxPurchase,
		Points:      total,
		Spent:       spent,
		Suspicious:  creator.Suspicious,
		Remark:      remark,
		UserID:      user.ID,
		CreatedByID: creator.ID,
		Promotions:  promos,
	}

	earned := 0
	err := db.Transaction(func(txn *gorm.DB) error {
		if err := txn.Create(&tx).Error; err != nil {
			return err
		}
		// A suspicious cashier's awards are held until a manager clears
		// the transaction.
		if !creator.Suspicious {
			earned = ledger.BalanceDelta(total)
			if err := txn.Model(user).Update("points", gorm.Expr("points + ?", earned)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logrus.Errorf("Failed to record purchase for %s: %v", user.Utorid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record purchase"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"transaction": tx.ID,
		"utorid":      user.Utorid,
		"spent":       *spent,
		"earned":      earned,
		"suspicious":  tx.Suspicious,
	}).Info("Purchase recorded")

	c.JSON(http.StatusCreated, gin.H{
		"id":           tx.ID,
		"utorid":       user.Utorid,
		"type":         "purchase",
		"spent":        *spent,
		"earned":       earned,
		"remark":       remark,
		"promotionIds": promotionIDs,
		"createdBy":    creator.Utorid,
	})
}

func createAdjustment(c *gin.Context, db *gorm.DB, creator, user *domain.User, amount *float64, relatedID *uint, promotionIDs []uint, remark string) {
	if amount == nil || !isInt(*amount) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be an integer"})
		return
	}
	if relatedID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "relatedId is required"})
		return
	}
	var related domain.Transaction
	if err := db.First(&related, *relatedID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Related transaction not found"})
		return
	}
	if promotionIDs == nil {
		promotionIDs = []uint{}
	}
	promos, ok := loadPromotions(c, db, promotionIDs, user.ID, nil, false)
	if !ok {
		return
	}

	delta := int(*amount)
	if user.Points+delta < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Adjustment would make the balance negative"})
		return
	}

	tx := domain.Transaction{
		Type:                  domain.TxAdjustment,
		Points:                *amount,
		Suspicious:            creator.Suspicious,
		Remark:                remark,
		UserID:                user.ID,
		CreatedByID:           creator.ID,
		AdjustedTransactionID: relatedID,
		Promotions:            promos,
	}
	err := db.Transaction(func(txn *gorm.DB) error {
		if err := txn.Create(&tx).Error; err != nil {
			return err
		}
		return txn.Model(user).Update("points", gorm.Expr("points + ?", delta)).Error
	})
	if err != nil {
		logrus.Errorf("Failed to record adjustment for %s: %v", user.Utorid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record adjustment"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"transaction": tx.ID,
		"utorid":      user.Utorid,
		"amount":      delta,
		"relatedId":   *relatedID,
	}).Info("Adjustment recorded")

	c.JSON(http.StatusCreated, gin.H{
		"id":           tx.ID,
		"utorid":       user.Utorid,
		"amount":       delta,
		"type":         "adjustment",
		"relatedId":    *relatedID,
		"remark":       remark,
		"promotionIds": promotionIDs,
		"createdBy":    creator.Utorid,
	})
}

// relatedIDColumns maps a lowercase transaction type to the relation column
// its relatedId filter matches against.
var relatedIDColumns = map[string]string{
	"adjustment": "adjusted_transaction_id",
	"transfer":   "related_user_id",
	"redemption": "processed_by_id",
	"event":      "event_id",
}

// applyTransactionFilters narrows a transaction query by the shared list
// parameters (type, relatedId, promotionId, amount+operator). Returns
// ok=false after writing a 400 response.
func applyTransactionFilters(c *gin.Context, db, q *gorm.DB) (*gorm.DB, bool) {
	txType := c.Query("type")
	if txType != "" {
		q = q.Where("transactions.type = ?", strings.ToUpper(txType))
	}
	if rel := c.Query("relatedId"); rel != "" {
		col, ok := relatedIDColumns[txType]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "relatedId requires a type with a relation"})
			return nil, false
		}
		id, err := strconv.Atoi(rel)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "relatedId must be a number"})
			return nil, false
		}
		q = q.Where("transactions."+col+" = ?", id)
	}
	if pid := c.Query("promotionId"); pid != "" {
		id, err := strconv.Atoi(pid)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "promotionId must be a number"})
			return nil, false
		}
		q = q.Where("transactions.id IN (?)", db.Table("transaction_promotions").
			Select("transaction_id").Where("promotion_id = ?", id))
	}
	if amount := c.Query("amount"); amount != "" {
		v, err := strconv.ParseFloat(amount, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a number"})
			return nil, false
		}
		switch c.Query("operator") {
		case "gte":
			q = q.Where("transactions.points >= ?", v)
		case "lte":
			q = q.Where("transactions.points <= ?", v)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "operator must be gte or lte"})
			return nil, false
		}
	}
	return q, true
}

// ListTransactionsHandler returns the full ledger for managers and above,
// filterable and paginated.
func ListTransactionsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceManager) {
			return
		}
		page, limit, ok := parsePagination(c)
		if !ok {
			return
		}

		q := db.Model(&domain.Transaction{})
		if name := c.Query("name"); name != "" {
			q = q.Joins("JOIN users ON users.id = transactions.user_id").
				Where("users.utorid LIKE ? OR users.name LIKE ?", "%"+name+"%", "%"+name+"%")
		}
		if createdBy := c.Query("createdBy"); createdBy != "" {
			q = q.Joins("JOIN users AS creators ON creators.id = transactions.created_by_id").
				Where("creators.utorid = ?", createdBy)
		}
		suspicious, ok := parseBoolQuery(c, "suspicious")
		if !ok {
			return
		}
		if suspicious != nil {
			q = q.Where("transactions.suspicious = ?", *suspicious)
		}
		q, ok = applyTransactionFilters(c, db, q)
		if !ok {
			return
		}

		var count int64
		if err := q.Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
			return
		}

		var txs []domain.Transaction
		if err := q.Preload("Promotions").Preload("User").Preload("CreatedBy").
			Order("transactions.id desc").Offset((page - 1) * limit).Limit(limit).
			Find(&txs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
			return
		}

		results := make([]gin.H, 0, len(txs))
		for i := range txs {
			results = append(results, transactionResponse(&txs[i]))
		}
		c.JSON(http.StatusOK, gin.H{"count": count, "results": results})
	}
}

// GetTransactionHandler returns a single ledger entry for managers and
// above.
func GetTransactionHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceManager) {
			return
		}
		id, err := strconv.Atoi(c.Param("transactionId"))
		if err != nil || id < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
			return
		}

		var tx domain.Transaction
		if err := db.Preload("Promotions").Preload("User").Preload("CreatedBy").
			First(&tx, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transaction"})
			return
		}
		c.JSON(http.StatusOK, transactionResponse(&tx))
	}
}

// SetTransactionSuspiciousHandler flips the review flag on a transaction.
// Marking suspicious reverses the points it applied; clearing the flag
// re-applies them. Setting the flag to its current value changes nothing.
func SetTransactionSuspiciousHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceManager) {
			return
		}
		id, err := strconv.Atoi(c.Param("transactionId"))
		if err != nil || id < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
			return
		}

		var req struct {
			Suspicious *bool `json:"suspicious"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Suspicious == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "suspicious must be a boolean"})
			return
		}

		var tx domain.Transaction
		if err := db.Preload("Promotions").Preload("User").Preload("CreatedBy").
			First(&tx, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transaction"})
			return
		}

		if tx.Suspicious != *req.Suspicious {
			delta := ledger.BalanceDelta(tx.Points)
			if *req.Suspicious {
				delta = -delta
			}
			err := db.Transaction(func(txn *gorm.DB) error {
				if err := txn.Model(&tx).Update("suspicious", *req.Suspicious).Error; err != nil {
					return err
				}
				return txn.Model(&domain.User{}).Where("id = ?", tx.UserID).
					Update("points", gorm.Expr("points + ?", delta)).Error
			})
			if err != nil {
				logrus.Errorf("Failed to flip suspicious on transaction %d: %v", tx.ID, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update transaction"})
				return
			}
			logrus.WithFields(logrus.Fields{
				"transaction": tx.ID,
				"suspicious":  *req.Suspicious,
				"delta":       delta,
			}).Info("Suspicious flag flipped")
			tx.Suspicious = *req.Suspicious
		}

		c.JSON(http.StatusOK, transactionResponse(&tx))
	}
}

// ProcessRedemptionHandler fulfils a pending redemption: records the
// cashier and applies the deferred balance decrement. A redemption can be
// processed exactly once.
func ProcessRedemptionHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceCashier) {
			return
		}
		cashier := middleware.CurrentUser(c)

		id, err := strconv.Atoi(c.Param("transactionId"))
		if err != nil || id < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
			return
		}

		var req struct {
			Processed *bool `json:"processed"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Processed == nil || !*req.Processed {
			c.JSON(http.StatusBadRequest, gin.H{"error": "processed must be true"})
			return
		}

		var tx domain.Transaction
		if err := db.Preload("User").Preload("CreatedBy").First(&tx, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transaction"})
			return
		}
		if tx.Type != domain.TxRedemption {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Transaction is not a redemption"})
			return
		}
		if tx.ProcessedByID != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Redemption has already been processed"})
			return
		}

		err = db.Transaction(func(txn *gorm.DB) error {
			if err := txn.Model(&tx).Update("processed_by_id", cashier.ID).Error; err != nil {
				return err
			}
			return txn.Model(&domain.User{}).Where("id = ?", tx.UserID).
				Update("points", gorm.Expr("points - ?", *tx.Redeemed)).Error
		})
		if err != nil {
			logrus.Errorf("Failed to process redemption %d: %v", tx.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process redemption"})
			return
		}

		logrus.WithFields(logrus.Fields{
			"transaction": tx.ID,
			"utorid":      tx.User.Utorid,
			"redeemed":    *tx.Redeemed,
			"processedBy": cashier.Utorid,
		}).Info("Redemption processed")

		c.JSON(http.StatusOK, gin.H{
			"id":          tx.ID,
			"utorid":      tx.User.Utorid,
			"type":        "redemption",
			"processedBy": cashier.Utorid,
			"redeemed":    *tx.Redeemed,
			"remark":      tx.Remark,
			"createdBy":   tx.CreatedBy.Utorid,
		})
	}
}

// CreateUserTransactionHandler serves POST /users/me/transactions
// (redemption request) and POST /users/:userId/transactions (transfer to
// that user) from the one parameterized route.
func CreateUserTransactionHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Param("userId") == "me" {
			createRedemption(c, db)
			return
		}
		createTransfer(c, db)
	}
}

func createRedemption(c *gin.Context, db *gorm.DB) {
	if !requireClearance(c, domain.ClearanceRegular) {
		return
	}
	user := middleware.CurrentUser(c)

	var req struct {
		Type   string   `json:"type"`
		Amount *float64 `json:"amount"`
		Remark string   `json:"remark"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Type != "redemption" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be redemption"})
		return
	}
	if req.Amount == nil || *req.Amount <= 0 || !isInt(*req.Amount) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive integer"})
		return
	}
	if !user.Verified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account must be verified to redeem points"})
		return
	}
	amount := int(*req.Amount)
	if amount > user.Points {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient points"})
		return
	}

	// The balance is not touched here: the decrement happens when a
	// cashier processes the request.
	tx := domain.Transaction{
		Type:        domain.TxRedemption,
		Points:      -float64(amount),
		Redeemed:    &amount,
		Suspicious:  user.Suspicious,
		Remark:      req.Remark,
		UserID:      user.ID,
		CreatedByID: user.ID,
	}
	if err := db.Create(&tx).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create redemption"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"transaction": tx.ID,
		"utorid":      user.Utorid,
		"amount":      amount,
	}).Info("Redemption requested")

	c.JSON(http.StatusCreated, gin.H{
		"id":          tx.ID,
		"utorid":      user.Utorid,
		"type":        "redemption",
		"processedBy": nil,
		"amount":      amount,
		"remark":      req.Remark,
		"createdBy":   user.Utorid,
	})
}

func createTransfer(c *gin.Context, db *gorm.DB) {
	if !requireClearance(c, domain.ClearanceRegular) {
		return
	}
	sender := middleware.CurrentUser(c)

	recipientID, err := strconv.Atoi(c.Param("userId"))
	if err != nil || recipientID < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var req struct {
		Type   string   `json:"type"`
		Amount *float64 `json:"amount"`
		Remark string   `json:"remark"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Type != "transfer" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be transfer"})
		return
	}
	if req.Amount == nil || *req.Amount <= 0 || !isInt(*req.Amount) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive integer"})
		return
	}
	if !sender.Verified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account must be verified to transfer points"})
		return
	}
	amount := int(*req.Amount)
	if amount > sender.Points {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient points"})
		return
	}

	var recipient domain.User
	if err := db.First(&recipient, recipientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	debit := domain.Transaction{
		Type:          domain.TxTransfer,
		Points:        -float64(amount),
		Suspicious:    sender.Suspicious,
		Remark:        req.Remark,
		UserID:        sender.ID,
		CreatedByID:   sender.ID,
		RelatedUserID: &recipient.ID,
	}
	credit := domain.Transaction{
		Type:          domain.TxTransfer,
		Points:        float64(amount),
		Suspicious:    sender.Suspicious,
		Remark:        req.Remark,
		UserID:        recipient.ID,
		CreatedByID:   sender.ID,
		RelatedUserID: &sender.ID,
	}

	// Both rows and both balances move together or not at all.
	err = db.Transaction(func(txn *gorm.DB) error {
		if err := txn.Create(&debit).Error; err != nil {
			return err
		}
		if err := txn.Create(&credit).Error; err != nil {
			return err
		}
		if err := txn.Model(sender).Update("points", gorm.Expr("points - ?", amount)).Error; err != nil {
			return err
		}
		return txn.Model(&recipient).Update("points", gorm.Expr("points + ?", amount)).Error
	})
	if err != nil {
		logrus.Errorf("Failed transfer from %s to %s: %v", sender.Utorid, recipient.Utorid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to transfer points"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"transaction": debit.ID,
		"sender":      sender.Utorid,
		"recipient":   recipient.Utorid,
		"amount":      amount,
	}).Info("Points transferred")

	c.JSON(http.StatusCreated, gin.H{
		"id":        debit.ID,
		"sender":    sender.Utorid,
		"recipient": recipient.Utorid,
		"type":      "transfer",
		"sent":      amount,
		"remark":    req.Remark,
		"createdBy": sender.Utorid,
	})
}

// ListOwnTransactionsHandler returns the caller's own ledger slice. The
// route only exists in its /users/me form.
func ListOwnTransactionsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Param("userId") != "me" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		if !requireClearance(c, domain.ClearanceRegular) {
			return
		}
		user := middleware.CurrentUser(c)

		page, limit, ok := parsePagination(c)
		if !ok {
			return
		}

		q := db.Model(&domain.Transaction{}).Where("transactions.user_id = ?", user.ID)
		q, ok = applyTransactionFilters(c, db, q)
		if !ok {
			return
		}

		var count int64
		if err := q.Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
			return
		}

		var txs []domain.Transaction
		if err := q.Preload("Promotions").Preload("User").Preload("CreatedBy").
			Order("transactions.id desc").Offset((page - 1) * limit).Limit(limit).
			Find(&txs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
			return
		}

		results := make([]gin.H, 0, len(txs))
		for i := range txs {
			resp := transactionResponse(&txs[i])
			delete(resp, "suspicious")
			results = append(results, resp)
		}
		c.JSON(http.StatusOK, gin.H{"count": count, "results": results})
	}
}
