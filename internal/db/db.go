package db

var Schema = `
	CREATE TABLE IF NOT EXISTS tokens (
		token TEXT NOT NULL UNIQUE
	);
	CREATE TABLE IF NOT EXISTS calibration_methods (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL,
		data BLOB NOT NULL
	);`

var Tokens = `
	SELECT token
	FROM tokens`

var InsertToken = `
	INSERT OR IGNORE
	INTO tokens (token)
	VALUES (?)`

var CalibrationMethods = `
	SELECT *
	FROM calibration_methods
	ORDER BY name`

var CalibrationMethod = `
	SELECT *
	FROM calibration_methods
	WHERE id = ?`

var InsertCalibrationMethod = `
	INSERT
	INTO calibration_methods (id, name, description, data)
	VALUES (?, ?, ?, ?)`

var SeedCalibrationMethod = `
	INSERT OR IGNORE
	INTO calibration_methods (id, name, description, data)
	VALUES (?, ?, ?, ?)`

var DeleteCalibrationMethod = `
	DELETE
	FROM calibration_methods
	WHERE id = ?`

var Sessions = `
	SELECT id, name, timestamp, description
	FROM sessions
	ORDER BY timestamp`

var SelectSession = `
	SELECT id, name, timestamp, description
	FROM sessions
	WHERE id = ?`

var SessionData = `
	SELECT name, data
	FROM sessions
	WHERE id = ?`

var InsertSession = `
	INSERT
	INTO sessions (name, timestamp, description, data)
	VALUES (?, ?, ?, ?)
	RETURNING id`

var DeleteSession = `
	DELETE
	FROM sessions
	WHERE id = ?`

var UpdateSession = `
	UPDATE sessions
	SET (name, description) = (?, ?)
	WHERE id = ?`
