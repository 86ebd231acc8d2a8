package server

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func seedSettlementLog(env *testEnv) {
	env.seedDive(day(1), "Dreischor", "Anna")
	env.seedDive(day(2), "Zoetersbout", "Anna")
	env.seedDive(day(2), "Zoetersbout", "Bram")
	env.seedDive(day(20), "Dreischor", "Anna")
}

func TestSettlementEmptyLog(t *testing.T) {
	env := newTestEnv(t)
	rec := env.login("lid", "lid-pw").get("/settlement")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nog geen logregels.")
}

func TestSettlementDefaults(t *testing.T) {
	env := newTestEnv(t)
	seedSettlementLog(env)

	rec := env.login("lid", "lid-pw").get("/settlement")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, `value="5.00"`)
	assert.Contains(t, body, `step="0.01"`)
	assert.Contains(t, body, "<td>Anna</td><td>3</td><td>€ 15,00</td>")
	assert.Contains(t, body, "<td>Bram</td><td>1</td><td>€ 5,00</td>")
	assert.Contains(t, body, "<strong>€ 20,00</strong>")
}

func TestSettlementRangeAndFee(t *testing.T) {
	env := newTestEnv(t)
	seedSettlementLog(env)

	rec := env.login("lid", "lid-pw").get("/settlement?from=2024-05-01&to=2024-05-02&fee=7,5")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "<td>Anna</td><td>2</td><td>€ 15,00</td>")
	assert.Contains(t, body, "<strong>€ 22,50</strong>")
}

func TestSettlementEmptyRange(t *testing.T) {
	env := newTestEnv(t)
	seedSettlementLog(env)
	c := env.login("lid", "lid-pw")

	rec := c.get("/settlement?from=2024-01-01&to=2024-01-31")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Geen duiken in de gekozen periode.")

	rec = c.get("/settlement/export?from=2024-01-01&to=2024-01-31")
	rec = c.follow(rec)
	assert.Contains(t, rec.Body.String(), "Geen duiken in de gekozen periode.")
}

func TestSettlementInvalidFee(t *testing.T) {
	env := newTestEnv(t)
	seedSettlementLog(env)
	c := env.login("lid", "lid-pw")

	rec := c.get("/settlement?fee=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "kan niet negatief zijn")

	for _, fee := range []string{"veel", "1e2147483647", "20000", "7.255"} {
		rec = c.get("/settlement?fee=" + fee)
		assert.Equal(t, http.StatusBadRequest, rec.Code, fee)
		assert.Contains(t, rec.Body.String(), "Ongeldige vergoeding per duik.", fee)
	}

	rec = c.get("/api/settlement?fee=1e2147483647")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Ongeldige vergoeding per duik."}`, rec.Body.String())

	rec = c.get("/settlement/export?fee=1e2147483647")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	rec = c.follow(rec)
	assert.Contains(t, rec.Body.String(), "Ongeldige vergoeding per duik.")
}

func TestSettlementExport(t *testing.T) {
	env := newTestEnv(t)
	seedSettlementLog(env)

	rec := env.login("lid", "lid-pw").get("/settlement/export?from=2024-05-01&to=2024-05-31&fee=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Afrekening.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	summary, err := f.GetRows("Afrekening")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Duiker", "AantalDuiken", "Bedrag"},
		{"Anna", "3", "6"},
		{"Bram", "1", "2"},
	}, summary)

	detail, err := f.GetRows("Detail")
	require.NoError(t, err)
	assert.Len(t, detail, 5)
}
