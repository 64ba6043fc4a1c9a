package handler

import (
	"github.com/iliyamo/duo/internal/model"
	"github.com/iliyamo/duo/internal/service"
)

// userResp is the public view of a user. Email and password digest are
// never serialized.
type userResp struct {
	UID           string      `json:"uid"`
	DisplayName   string      `json:"displayName"`
	Discriminator string      `json:"discriminator"`
	FullTag       string      `json:"fullTag"`
	Status        string      `json:"status"`
	CreatedAt     int64       `json:"createdAt"`
	LastSeen      int64       `json:"lastSeen"`
	Stats         model.Stats `json:"stats"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		UID:           u.UID,
		DisplayName:   u.DisplayName,
		Discriminator: u.Discriminator,
		FullTag:       u.FullTag,
		Status:        string(u.Status),
		CreatedAt:     u.CreatedAt,
		LastSeen:      u.LastSeen,
		Stats:         u.Stats,
	}
}

// userOrNil keeps a JSON null for absent users.
func userOrNil(u *model.User) *userResp {
	if u == nil {
		return nil
	}
	r := toUserResp(*u)
	return &r
}

type authResp struct {
	User      userResp `json:"user"`
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expiresAt"`
}

type presenceResp struct {
	UID             string  `json:"uid"`
	Status          string  `json:"status"`
	GroupID         *string `json:"groupId"`
	LastUpdated     int64   `json:"lastUpdated"`
	IsTyping        bool    `json:"isTyping"`
	Stale           bool    `json:"stale"`
	EffectiveStatus string  `json:"effectiveStatus"`
}

func toPresenceResp(v *service.PresenceView) *presenceResp {
	if v == nil {
		return nil
	}
	return &presenceResp{
		UID:             v.UID,
		Status:          string(v.Status),
		GroupID:         v.GroupID,
		LastUpdated:     v.LastUpdated,
		IsTyping:        v.IsTyping,
		Stale:           v.Stale,
		EffectiveStatus: string(v.EffectiveStatus),
	}
}

var okResp = map[string]bool{"ok": true}
