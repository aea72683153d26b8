package http

import (
	"net/http"
	"strings"

	"github.com/dkeye/VoiceClub/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const (
	WalletHeader     = "X-Wallet-Address"
	walletSessionKey = "wallet"
	adminWalletKey   = "admin_wallet"
)

type WalletRole string

const (
	RoleOwner WalletRole = "owner"
	RoleAdmin WalletRole = "admin"
	RoleUser  WalletRole = "user"
)

// AdminGate authorizes admin routes by wallet address taken from the
// X-Wallet-Address header or, failing that, from the cookie session.
type AdminGate struct {
	owner          string
	admins         map[string]struct{}
	allowAnonymous bool
}

func NewAdminGate(cfg config.AdminConfig) *AdminGate {
	admins := lo.FilterMap(cfg.AdminWallets, func(w string, _ int) (string, bool) {
		return NormalizeWallet(w)
	})
	owner, _ := NormalizeWallet(cfg.OwnerWallet)
	return &AdminGate{
		owner:          owner,
		admins:         lo.SliceToMap(admins, func(w string) (string, struct{}) { return w, struct{}{} }),
		allowAnonymous: cfg.AllowAnonymous,
	}
}

// NormalizeWallet lowercases a 0x-prefixed 20 byte hex address.
func NormalizeWallet(w string) (string, bool) {
	w = strings.ToLower(strings.TrimSpace(w))
	if len(w) != 42 || !strings.HasPrefix(w, "0x") {
		return "", false
	}
	for _, r := range w[2:] {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return "", false
		}
	}
	return w, true
}

func (g *AdminGate) RoleOf(wallet string) WalletRole {
	w, ok := NormalizeWallet(wallet)
	switch {
	case !ok:
		return RoleUser
	case g.owner != "" && w == g.owner:
		return RoleOwner
	default:
		if _, ok := g.admins[w]; ok {
			return RoleAdmin
		}
		return RoleUser
	}
}

func walletFrom(c *gin.Context) string {
	if w := c.GetHeader(WalletHeader); w != "" {
		return w
	}
	if w, ok := sessions.Default(c).Get(walletSessionKey).(string); ok {
		return w
	}
	return ""
}

func (g *AdminGate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		wallet := walletFrom(c)
		if wallet == "" {
			if g.allowAnonymous {
				log.Warn().Str("module", "adapters.http").Str("path", c.FullPath()).Msg("anonymous admin request allowed")
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required: missing " + WalletHeader})
			return
		}
		w, ok := NormalizeWallet(wallet)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required: invalid wallet address"})
			return
		}
		if g.RoleOf(w) == RoleUser {
			log.Warn().Str("module", "adapters.http").Str("wallet", w).Str("path", c.FullPath()).Msg("admin access denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Set(adminWalletKey, w)
		c.Next()
	}
}

func (g *AdminGate) checkRole(c *gin.Context) {
	w, ok := NormalizeWallet(c.Param("wallet"))
	if !ok {
		badRequest(c, errInvalidWallet)
		return
	}
	role := g.RoleOf(w)
	c.JSON(http.StatusOK, gin.H{
		"wallet":   w,
		"role":     role,
		"is_admin": role != RoleUser,
		"is_owner": role == RoleOwner,
	})
}

type bindWalletRequest struct {
	Wallet string `json:"wallet" binding:"required"`
}

// bindWallet stores the wallet in the cookie session so later requests
// need not carry the header. It runs behind Middleware and only binds the
// wallet that request was authorized with, so the cookie grants nothing the
// header did not already grant.
func (g *AdminGate) bindWallet(c *gin.Context) {
	var req bindWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	w, ok := NormalizeWallet(req.Wallet)
	if !ok {
		badRequest(c, errInvalidWallet)
		return
	}
	if authorized := c.GetString(adminWalletKey); authorized != "" && authorized != w {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "wallet does not match the authorized wallet"})
		return
	}
	s := sessions.Default(c)
	s.Set(walletSessionKey, w)
	if err := s.Save(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": w, "role": g.RoleOf(w)})
}

func (g *AdminGate) clearWallet(c *gin.Context) {
	s := sessions.Default(c)
	s.Delete(walletSessionKey)
	if err := s.Save(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
