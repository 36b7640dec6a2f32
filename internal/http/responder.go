package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/feedback-analytics/internal/application"
	"github.com/example/feedback-analytics/internal/attendance"
)

var errBadRequestBody = errors.New("無効なリクエスト形式です。")

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "指定されたリソースが見つかりません。"})
	case errors.Is(err, application.ErrTokenExpired):
		r.writeJSON(ctx, w, http.StatusGone, errorResponse{
			ErrorCode: "TOKEN_EXPIRED",
			Message:   "フィードバック用リンクの有効期限が切れています。新しいリンクを発行してください。",
		})
	case errors.Is(err, application.ErrTokenInvalid):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "TOKEN_INVALID",
			Message:   "フィードバック用リンクが無効です。",
		})
	case errors.Is(err, attendance.ErrInvalidTapOrdering):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "INVALID_TAP_ORDERING",
			Message:   "打刻時刻が入室時刻より前になっています。",
		})
	case errors.Is(err, application.ErrNotEligible):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "NOT_ELIGIBLE",
			Message:   "参加時間がフィードバックの受付条件を満たしていません。",
		})
	case errors.Is(err, application.ErrAlreadySubmitted):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_SUBMITTED",
			Message:   "フィードバックは既に送信済みです。",
		})
	case errors.Is(err, application.ErrCancelled):
		r.writeJSON(ctx, w, http.StatusGatewayTimeout, errorResponse{Message: "処理がタイムアウトしました。"})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			status := http.StatusUnprocessableEntity
			if vErr.Malformed {
				status = http.StatusBadRequest
			}
			r.writeJSON(ctx, w, status, errorResponse{
				Message: localizedStatusMessage(status),
				Errors:  localizeValidationErrors(vErr),
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusGone:
		return "指定されたリソースは利用できなくなりました。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	case http.StatusGatewayTimeout:
		return "処理がタイムアウトしました。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "is required":
		return "必須です。"
	case "must be an integer":
		return "整数で指定してください。"
	case "must be a number":
		return "数値で指定してください。"
	case "must be a valid timestamp":
		return "有効な日時を指定してください。"
	case "is not a field of this form":
		return "フォームに存在しない項目です。"
	case "event has no slug":
		return "イベントのスラッグが設定されていません。"
	}
	switch {
	case strings.HasPrefix(message, "must be at least "):
		return strings.TrimPrefix(message, "must be at least ") + " 以上で指定してください。"
	case strings.HasPrefix(message, "must be at most ") && strings.HasSuffix(message, " characters"):
		return strings.TrimSuffix(strings.TrimPrefix(message, "must be at most "), " characters") + " 文字以内で指定してください。"
	case strings.HasPrefix(message, "must be at most "):
		return strings.TrimPrefix(message, "must be at most ") + " 以下で指定してください。"
	case strings.HasPrefix(message, "must be one of "):
		return "次のいずれかを指定してください: " + strings.TrimPrefix(message, "must be one of ")
	case strings.HasPrefix(message, "must be between "):
		return strings.Replace(strings.TrimPrefix(message, "must be between "), " and ", " から ", 1) + " の範囲で指定してください。"
	case strings.HasSuffix(message, " is not an option"):
		return "選択肢にない値です: " + strings.TrimSuffix(message, " is not an option")
	}
	return message
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
