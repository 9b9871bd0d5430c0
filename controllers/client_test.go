package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"reviewflow-backend/models"
	"reviewflow-backend/testutil"

	"github.com/gin-gonic/gin"
)

func clientRouter(e env) *gin.Engine {
	cc := &ClientController{DB: e.db, Log: e.log}
	r := gin.New()
	r.GET("/api/clients", cc.ListClients)
	r.POST("/api/clients", cc.CreateClient)
	r.GET("/api/clients/:id", cc.GetClient)
	r.PUT("/api/clients/:id", cc.UpdateClient)
	r.DELETE("/api/clients/:id", cc.DeleteClient)
	r.GET("/api/clients/:id/locations", cc.ListLocations)
	r.POST("/api/clients/:id/locations", cc.CreateLocation)
	r.PUT("/api/clients/:id/locations", cc.ReplaceLocations)
	r.DELETE("/api/clients/:id/locations", cc.DeleteLocation)
	return r
}

func TestCreateClient(t *testing.T) {
	e := newEnv(t)
	r := clientRouter(e)

	body := map[string]interface{}{
		"name":            "Acme Dental Care",
		"google_place_id": "ChIJacme",
		"website_url":     "https://acme.test/",
	}
	w := serve(r, jsonRequest(t, http.MethodPost, "/api/clients", body))
	if w.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", w.Code, w.Body.String())
	}
	var created models.Client
	decode(t, w, &created)
	if created.Slug != "acme-dental-care" {
		t.Fatalf("unexpected slug %q", created.Slug)
	}
	if created.ContactPageURL != "https://acme.test/contact" {
		t.Fatalf("unexpected contact page %q", created.ContactPageURL)
	}
	if created.ShareToken == nil || len(*created.ShareToken) != 16 {
		t.Fatalf("want a share token, got %v", created.ShareToken)
	}

	w = serve(r, jsonRequest(t, http.MethodPost, "/api/clients", body))
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate slug: want 409, got %d", w.Code)
	}

	w = serve(r, jsonRequest(t, http.MethodPost, "/api/clients", map[string]string{"name": "No Place"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: want 400, got %d", w.Code)
	}
}

func TestUpdateClientSlugConflict(t *testing.T) {
	e := newEnv(t)
	a := testutil.SeedClient(t, e.db, "A")
	b := testutil.SeedClient(t, e.db, "B")
	r := clientRouter(e)

	w := serve(r, jsonRequest(t, http.MethodPut, "/api/clients/"+b.ID.String(), map[string]string{"slug": a.Slug}))
	if w.Code != http.StatusConflict {
		t.Fatalf("want 409, got %d", w.Code)
	}

	w = serve(r, jsonRequest(t, http.MethodPut, "/api/clients/"+b.ID.String(), map[string]interface{}{"name": "Renamed", "auto_send_enabled": true}))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated models.Client
	decode(t, w, &updated)
	if updated.Name != "Renamed" || !updated.AutoSendEnabled || updated.Slug != b.Slug {
		t.Fatalf("unexpected update %+v", updated)
	}
}

func TestReplaceLocations(t *testing.T) {
	e := newEnv(t)
	client := testutil.SeedClient(t, e.db, "Acme Dental")
	old := testutil.SeedLocation(t, e.db, client.ID, "old", "https://old.test")
	rr := testutil.SeedRequest(t, e.db, client.ID, models.StatusSent, &old.ID, nil)
	r := clientRouter(e)
	path := "/api/clients/" + client.ID.String() + "/locations"

	twoDefaults := map[string]interface{}{"locations": []map[string]interface{}{
		{"name": "North", "google_place_id": "N", "contact_page_url": "https://n.test", "is_default": true},
		{"name": "South", "google_place_id": "S", "contact_page_url": "https://s.test", "is_default": true},
	}}
	if w := serve(r, jsonRequest(t, http.MethodPut, path, twoDefaults)); w.Code != http.StatusConflict {
		t.Fatalf("want 409, got %d", w.Code)
	}

	oneDefault := map[string]interface{}{"locations": []map[string]interface{}{
		{"name": "North", "google_place_id": "N", "contact_page_url": "https://n.test", "is_default": true, "acuity_calendar_ids": []int64{7}},
		{"name": "South", "google_place_id": "S", "contact_page_url": "https://s.test"},
	}}
	w := serve(r, jsonRequest(t, http.MethodPut, path, oneDefault))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	var locations []models.Location
	decode(t, w, &locations)
	if len(locations) != 2 {
		t.Fatalf("want 2 locations, got %d", len(locations))
	}
	if n := testutil.Count(t, e.db, &models.Location{}, "id = ?", old.ID); n != 0 {
		t.Fatal("old location survived replacement")
	}
	if got := testutil.Reload(t, e.db, rr.ID); got.LocationID != nil {
		t.Fatalf("request still points at a deleted location: %v", got.LocationID)
	}
}

func TestDeleteLocation(t *testing.T) {
	e := newEnv(t)
	client := testutil.SeedClient(t, e.db, "Acme Dental")
	loc := testutil.SeedLocation(t, e.db, client.ID, "L", "https://l.test")
	rr := testutil.SeedRequest(t, e.db, client.ID, models.StatusSent, &loc.ID, nil)
	r := clientRouter(e)
	path := "/api/clients/" + client.ID.String() + "/locations"

	if w := serve(r, httptest.NewRequest(http.MethodDelete, path, nil)); w.Code != http.StatusBadRequest {
		t.Fatalf("missing locationId: want 400, got %d", w.Code)
	}
	if w := serve(r, httptest.NewRequest(http.MethodDelete, path+"?locationId="+loc.ID.String(), nil)); w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := testutil.Reload(t, e.db, rr.ID); got.LocationID != nil {
		t.Fatal("request reference was not cleared")
	}
	if w := serve(r, httptest.NewRequest(http.MethodDelete, path+"?locationId="+loc.ID.String(), nil)); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: want 404, got %d", w.Code)
	}
}

func TestDeleteClientCascades(t *testing.T) {
	e := newEnv(t)
	client := testutil.SeedClient(t, e.db, "Acme Dental")
	keep := testutil.SeedClient(t, e.db, "Keep Me")
	loc := testutil.SeedLocation(t, e.db, client.ID, "L", "")
	rr := testutil.SeedRequest(t, e.db, client.ID, models.StatusSent, &loc.ID, nil)
	testutil.SeedRequest(t, e.db, keep.ID, models.StatusSent, nil, nil)
	if err := e.db.Create(&models.ClickEvent{ReviewRequestID: rr.ID, Rating: 4, RedirectedTo: "x"}).Error; err != nil {
		t.Fatalf("seed click: %v", err)
	}
	r := clientRouter(e)

	if w := serve(r, httptest.NewRequest(http.MethodDelete, "/api/clients/"+client.ID.String(), nil)); w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	if n := testutil.Count(t, e.db, &models.ReviewRequest{}, ""); n != 1 {
		t.Fatalf("want only the other client's request left, got %d", n)
	}
	if n := testutil.Count(t, e.db, &models.ClickEvent{}, ""); n != 0 {
		t.Fatalf("click events not removed, got %d", n)
	}
	if n := testutil.Count(t, e.db, &models.Location{}, ""); n != 0 {
		t.Fatalf("locations not removed, got %d", n)
	}

	if w := serve(r, httptest.NewRequest(http.MethodDelete, "/api/clients/"+client.ID.String(), nil)); w.Code != http.StatusNotFound {
		t.Fatalf("want 404 for a deleted client, got %d", w.Code)
	}
}
