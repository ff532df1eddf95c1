package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/datatypes"

	"github.com/medveille/veille-backend/gateway"
	"github.com/medveille/veille-backend/model"
	"github.com/medveille/veille-backend/server/middlewares"
	"github.com/medveille/veille-backend/session"
	Logger "github.com/medveille/veille-backend/utils/log"
)

var Log = Logger.LogV2

type credentialsPayload struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func sessionResponse(sess *session.Session) gin.H {
	return gin.H{
		"user_id":    sess.UserID,
		"email":      sess.Email,
		"anonymous":  sess.Anonymous,
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt,
	}
}

func SignUpHandler(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload credentialsPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		sess, err := sessions.CreateAccount(c.Request.Context(), payload.Email, payload.Password)
		if err != nil {
			Log.Errorf("fail to create account", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fail to create account"})
			return
		}
		c.JSON(http.StatusOK, sessionResponse(sess))
	}
}

func SignInHandler(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload credentialsPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		sess, err := sessions.Authenticate(c.Request.Context(), payload.Email, payload.Password)
		if err != nil {
			if errors.Is(err, session.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
				return
			}
			Log.Errorf("fail to sign in", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fail to sign in"})
			return
		}
		c.JSON(http.StatusOK, sessionResponse(sess))
	}
}

func AnonymousHandler(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := sessions.CreateAnonymous(c.Request.Context())
		if err != nil {
			Log.Errorf("fail to create anonymous session", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fail to create anonymous session"})
			return
		}
		c.JSON(http.StatusOK, sessionResponse(sess))
	}
}

func LinkAccountHandler(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middlewares.GetIdentity(c)
		var payload credentialsPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		sess, err := sessions.UpgradeUser(c.Request.Context(), identity.UserID, payload.Email, payload.Password)
		if err != nil {
			if errors.Is(err, session.ErrNotAnonymous) {
				c.JSON(http.StatusConflict, gin.H{"error": "account is not anonymous"})
				return
			}
			Log.Errorf("fail to link account", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fail to link account"})
			return
		}
		c.JSON(http.StatusOK, sessionResponse(sess))
	}
}

func ArticlesHandler(gw *gateway.PgGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middlewares.GetIdentity(c)

		grade := model.Grade(c.Query("grade"))
		if grade != "" && !model.ValidGrade(grade) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid grade"})
			return
		}
		offset, _ := strconv.Atoi(c.Query("offset"))
		limit, _ := strconv.Atoi(c.Query("limit"))

		q := gateway.ArticleQuery{
			DisciplineName:            c.Query("discipline"),
			SubDisciplineName:         c.Query("sub_discipline"),
			Grade:                     grade,
			SearchTerm:                c.Query("q"),
			Offset:                    offset,
			Limit:                     limit,
			UserID:                    identity.UserID,
			FilterByUserSubscriptions: c.Query("mine") == "true",
		}
		articles, err := gw.QueryArticles(c.Request.Context(), q)
		if err != nil {
			Log.Errorf("fail to query articles", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fail to query articles"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"articles": articles})
	}
}

func ArticleOfTheDayHandler(gw *gateway.PgGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middlewares.GetIdentity(c)
		article, err := gw.ArticleOfTheDay(c.Request.Context(), identity.UserID)
		if err != nil {
			Log.Errorf("fail to query article of the day", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fail to query article of the day"})
			return
		}
		if article == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no article of the day"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"article": article})
	}
}

func parseInteraction(c *gin.Context) (gateway.InteractionKind, int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return "", 0, false
	}
	switch c.Param("kind") {
	case "like":
		return gateway.InteractionLike, id, true
	case "read":
		return gateway.InteractionRead, id, true
	case "thumbsup":
		return gateway.InteractionThumbsUp, id, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "unknown interaction kind"})
	return "", 0, false
}

func AddInteractionHandler(gw *gateway.PgGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middlewares.GetIdentity(c)
		kind, id, ok := parseInteraction(c)
		if !ok {
			return
		}
		if err := gw.AddInteraction(c.Request.Context(), kind, id, identity.UserID); err != nil {
			Log.Errorf("fail to add interaction", kind, id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fail to add interaction"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func RemoveInteractionHandler(gw *gateway.PgGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middlewares.GetIdentity(c)
		kind, id, ok := parseInteraction(c)
		if !ok {
			return
		}
		if err := gw.RemoveInteraction(c.Request.Context(), kind, id, identity.UserID); err != nil {
			Log.Errorf("fail to remove interaction", kind, id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fail to remove interaction"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func DisciplinesHandler(gw *gateway.PgGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		disciplines, err := gw.ListDisciplines(c.Request.Context())
		if err != nil {
			Log.Errorf("fail to list disciplines", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fail to list disciplines"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"disciplines": disciplines})
	}
}

func SubDisciplinesHandler(gw *gateway.PgGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid discipline id"})
			return
		}
		subs, err := gw.ListSubDisciplines(c.Request.Context(), id)
		if err != nil {
			Log.Errorf("fail to list sub-disciplines", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fail to list sub-disciplines"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sub_disciplines": subs})
	}
}

func SubscriptionTreeHandler(gw *gateway.PgGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middlewares.GetIdentity(c)
		tree, err := gw.UserSubscriptionTree(c.Request.Context(), identity.UserID)
		if err != nil {
			Log.Errorf("fail to load subscription tree", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fail to load subscriptions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"subscriptions": tree})
	}
}

func GetProfileHandler(gw *gateway.PgGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middlewares.GetIdentity(c)
		profile, err := gw.GetProfile(c.Request.Context(), identity.UserID)
		if err != nil {
			Log.Errorf("fail to load profile", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fail to load profile"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"profile": profile})
	}
}

type profilePayload struct {
	FirstName             string          `json:"first_name"`
	LastName              string          `json:"last_name"`
	Job                   string          `json:"job"`
	NotificationsEnabled  *bool           `json:"notifications_enabled"`
	NotificationFrequency model.Frequency `json:"notification_frequency"`
	GradePreferences      []model.Grade   `json:"grade_preferences"`
}

func UpdateProfileHandler(gw *gateway.PgGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middlewares.GetIdentity(c)
		var payload profilePayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		if payload.NotificationFrequency != "" && !model.ValidFrequency(payload.NotificationFrequency) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification frequency"})
			return
		}
		for _, g := range payload.GradePreferences {
			if !model.ValidGrade(g) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid grade preference"})
				return
			}
		}

		profile, err := gw.GetProfile(c.Request.Context(), identity.UserID)
		if err != nil {
			Log.Errorf("fail to load profile", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fail to load profile"})
			return
		}
		profile.FirstName = payload.FirstName
		profile.LastName = payload.LastName
		profile.Job = payload.Job
		if payload.NotificationsEnabled != nil {
			profile.NotificationsEnabled = *payload.NotificationsEnabled
		}
		if payload.NotificationFrequency != "" {
			profile.NotificationFrequency = payload.NotificationFrequency
		}
		if payload.GradePreferences != nil {
			encoded, err := gradePreferencesJSON(payload.GradePreferences)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid grade preferences"})
				return
			}
			profile.GradePreferences = encoded
		}

		if err := gw.UpdateProfile(c.Request.Context(), profile); err != nil {
			Log.Errorf("fail to update profile", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fail to update profile"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"profile": profile})
	}
}

func gradePreferencesJSON(grades []model.Grade) (datatypes.JSON, error) {
	encoded, err := json.Marshal(grades)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}

type subscriptionsPayload struct {
	Subscriptions []struct {
		DisciplineID    int64  `json:"discipline_id" binding:"required"`
		SubDisciplineID *int64 `json:"sub_discipline_id"`
	} `json:"subscriptions"`
}

func ReplaceSubscriptionsHandler(gw *gateway.PgGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middlewares.GetIdentity(c)
		var payload subscriptionsPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		rows := make([]model.Subscription, 0, len(payload.Subscriptions))
		for _, s := range payload.Subscriptions {
			rows = append(rows, model.Subscription{
				UserID:          identity.UserID,
				DisciplineID:    s.DisciplineID,
				SubDisciplineID: s.SubDisciplineID,
			})
		}
		if err := gw.ReplaceSubscriptions(c.Request.Context(), identity.UserID, rows); err != nil {
			Log.Errorf("fail to replace subscriptions", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fail to replace subscriptions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

type pushTokenPayload struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform"`
}

func RegisterTokenHandler(gw *gateway.PgGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middlewares.GetIdentity(c)
		var payload pushTokenPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		if err := gw.RegisterToken(c.Request.Context(), model.PushToken{
			UserID:   identity.UserID,
			Token:    payload.Token,
			Platform: payload.Platform,
		}); err != nil {
			Log.Errorf("fail to register push token", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fail to register push token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
