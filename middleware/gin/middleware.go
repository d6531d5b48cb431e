// Package gin adapts the x402 payment gate to gin handler chains. Route
// matching, facilitator calls and the 402 challenge body are shared with the
// net/http middleware; only the response plumbing is gin-specific.
//
// Unlike the net/http middleware, settlement runs before the handler chain:
// gin handlers write straight to the connection, so there is no later point
// at which a failed settle could still replace the response.
package gin

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bitfsorg/x402-bch-go/middleware"
	"github.com/bitfsorg/x402-bch-go/x402"
)

// Config is an alias for the net/http middleware config.
type Config = middleware.Config

// PaymentContextKey stores the verify result in the gin context of a paid
// request.
const PaymentContextKey = "x402-payment"

// New returns a gin middleware gating the configured routes behind x402
// payments.
func New(cfg Config) (gin.HandlerFunc, error) {
	if cfg.PayTo == "" {
		return nil, middleware.ErrMissingPayTo
	}

	table, err := middleware.CompileRoutes(cfg.Routes)
	if err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		client = middleware.NewFacilitatorClient(cfg.FacilitatorURL)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return func(c *gin.Context) {
		routeCfg, ok := table.Match(c.Request.Method, c.Request.URL.RequestURI())
		if !ok {
			c.Next()
			return
		}

		accepts := routeCfg.Requirements(c.Request, cfg.PayTo)

		header := c.GetHeader(x402.HeaderPayment)
		if header == "" {
			log.Info("payment required", "method", c.Request.Method, "path", c.Request.URL.Path)
			abortPaymentRequired(c, accepts, "X-PAYMENT header is required", "")
			return
		}

		payload, err := x402.ParsePaymentHeader(header)
		if err != nil {
			log.Info("malformed payment header", "path", c.Request.URL.Path, "err", err)
			abortPaymentRequired(c, accepts, "Invalid or malformed payment header", "")
			return
		}

		selected := middleware.SelectRequirements(accepts, payload.Scheme, payload.Network)
		if selected == nil {
			abortPaymentRequired(c, accepts, "Unable to find matching payment requirements", "")
			return
		}

		verification, err := client.Verify(c.Request.Context(), payload, selected)
		if err != nil {
			log.Error("facilitator verify failed", "err", err)
			abortPaymentRequired(c, accepts, "Payment verification failed", "")
			return
		}
		if !verification.IsValid {
			log.Info("payment rejected", "payer", verification.Payer, "reason", verification.InvalidReason)
			abortPaymentRequired(c, accepts, verification.InvalidReason, verification.Payer)
			return
		}

		if cfg.Settle {
			result, err := client.Settle(c.Request.Context(), payload, selected)
			if err != nil {
				log.Error("facilitator settle failed", "err", err)
				abortPaymentRequired(c, accepts, "Payment settlement failed", "")
				return
			}
			if !result.Success {
				log.Info("settlement rejected", "payer", result.Payer, "reason", result.ErrorReason)
				abortPaymentRequired(c, accepts, result.ErrorReason, result.Payer)
				return
			}
			if encoded, err := x402.EncodeSettleHeader(result); err == nil {
				c.Writer.Header().Set(x402.HeaderPaymentResponse, encoded)
				c.Writer.Header().Add("Access-Control-Expose-Headers", x402.HeaderPaymentResponse)
			}
			log.Info("payment settled", "payer", result.Payer, "transaction", result.Transaction)
		}

		c.Set(PaymentContextKey, verification)
		c.Next()
	}, nil
}

// Verification returns the verify result stored for a paid request, or nil.
func Verification(c *gin.Context) *x402.VerifyResult {
	v, ok := c.Get(PaymentContextKey)
	if !ok {
		return nil
	}
	result, ok := v.(*x402.VerifyResult)
	if !ok {
		return nil
	}
	return result
}

func abortPaymentRequired(c *gin.Context, accepts []x402.PaymentRequirements, errMsg, payer string) {
	c.AbortWithStatusJSON(http.StatusPaymentRequired, x402.PaymentRequired{
		X402Version: x402.Version,
		Error:       errMsg,
		Accepts:     accepts,
		Payer:       payer,
	})
}
