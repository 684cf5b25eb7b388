package mysql

const upsertRegionSQL = `
INSERT INTO regions
  (region_key, triggers)
VALUES
  (?, ?)
ON DUPLICATE KEY UPDATE
  triggers   = VALUES(triggers),
  updated_at = CURRENT_TIMESTAMP
`

const deleteSeedsSQL = `DELETE FROM seed_resorts WHERE region_key = ?`

const insertSeedsPrefix = "INSERT INTO seed_resorts\n  (region_key, position, name, lat, lon)\nVALUES "

const deleteKeywordsSQL = `DELETE FROM keywords WHERE kind = ?`

const insertKeywordsPrefix = "INSERT INTO keywords\n  (kind, position, word)\nVALUES "

const selectRegionsSQL = `
SELECT region_key, triggers
FROM regions
ORDER BY id
`

const selectSeedsSQL = `
SELECT region_key, name, lat, lon
FROM seed_resorts
ORDER BY region_key, position
`

const selectKeywordsSQL = `
SELECT kind, word
FROM keywords
ORDER BY kind, position
`

const deleteRegionsSQL = `DELETE FROM regions`
