package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"agora/internal/models"
)

func TestBanAndUnbanFlow(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)

	creator := createHandlerTestUser(t, db, "creator")
	target := createHandlerTestUser(t, db, "troll")
	community := createHandlerTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	if err := db.Create(&models.CommunityMembership{
		CommunityID: community.ID,
		UserID:      target.ID,
	}).Error; err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	if err := db.Model(&models.Community{}).Where("id = ?", community.ID).
		Update("members_count", 1).Error; err != nil {
		t.Fatalf("seed count: %v", err)
	}

	app := newTestApp(creator.ID)
	app.Post("/communities/:slug/bans", s.BanUser)
	app.Get("/communities/:slug/bans", s.GetBans)
	app.Delete("/communities/:slug/bans/:userId", s.UnbanUser)

	body := []byte(`{"username":"troll","reason":"spam","days":7}`)
	req := httptest.NewRequest(http.MethodPost, "/communities/gophers/bans", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var got models.Community
	if err := db.First(&got, community.ID).Error; err != nil {
		t.Fatalf("reload community: %v", err)
	}
	if got.MembersCount != 0 {
		t.Fatalf("ban should remove membership, members_count = %d", got.MembersCount)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/communities/gophers/bans", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var listBody struct {
		Bans []models.CommunityBan `json:"bans"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listBody); err != nil {
		t.Fatalf("decode bans: %v", err)
	}
	if len(listBody.Bans) != 1 || listBody.Bans[0].UserID != target.ID {
		t.Fatalf("expected one ban for target, got %+v", listBody.Bans)
	}

	unban := httptest.NewRequest(http.MethodDelete,
		fmt.Sprintf("/communities/gophers/bans/%d", target.ID), nil)
	resp, err = app.Test(unban)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var count int64
	if err := db.Model(&models.CommunityBan{}).Where("community_id = ?", community.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("count bans: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no bans after unban, got %d", count)
	}
}

func TestBanRequiresModeratorRole(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)

	creator := createHandlerTestUser(t, db, "creator")
	outsider := createHandlerTestUser(t, db, "outsider")
	createHandlerTestUser(t, db, "target")
	createHandlerTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	app := newTestApp(outsider.ID)
	app.Post("/communities/:slug/bans", s.BanUser)

	body := []byte(`{"username":"target","permanent":true}`)
	req := httptest.NewRequest(http.MethodPost, "/communities/gophers/bans", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestBannedUserCannotSeeCommunity(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)

	creator := createHandlerTestUser(t, db, "creator")
	banned := createHandlerTestUser(t, db, "banned")
	community := createHandlerTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	if err := db.Create(&models.CommunityBan{
		CommunityID:    community.ID,
		UserID:         banned.ID,
		BannedByUserID: creator.ID,
		Permanent:      true,
	}).Error; err != nil {
		t.Fatalf("seed ban: %v", err)
	}

	app := newTestApp(banned.ID)
	app.Get("/communities/:slug", s.GetCommunityBySlug)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/communities/gophers", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	anonApp := newTestApp(0)
	anonApp.Get("/communities/:slug", s.GetCommunityBySlug)
	resp, err = anonApp.Test(httptest.NewRequest(http.MethodGet, "/communities/gophers", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for anonymous viewer, got %d", resp.StatusCode)
	}
}
