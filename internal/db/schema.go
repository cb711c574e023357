package db

// Host-owned tables come first; lti_* tables belong to the enrolment plugin.
const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  auth TEXT NOT NULL DEFAULT 'manual',
  firstname TEXT NOT NULL DEFAULT '',
  lastname TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  institution TEXT NOT NULL DEFAULT '',
  timezone TEXT NOT NULL DEFAULT '',
  maildisplay INTEGER NOT NULL DEFAULT 2,
  mnethostid INTEGER NOT NULL DEFAULT 1,
  confirmed INTEGER NOT NULL DEFAULT 0,
  lang TEXT NOT NULL DEFAULT '',
  deleted INTEGER NOT NULL DEFAULT 0,
  timecreated INTEGER NOT NULL DEFAULT 0,
  timemodified INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS contexts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  contextlevel INTEGER NOT NULL,
  instanceid INTEGER NOT NULL,
  courseid INTEGER NOT NULL DEFAULT 0,
  depth INTEGER NOT NULL DEFAULT 0,
  modname TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  iconurl TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS enrol_instances (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  enrol TEXT NOT NULL,
  courseid INTEGER NOT NULL,
  status INTEGER NOT NULL DEFAULT 0,
  name TEXT NOT NULL DEFAULT '',
  enrolstartdate INTEGER NOT NULL DEFAULT 0,
  enrolenddate INTEGER NOT NULL DEFAULT 0,
  enrolperiod INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS user_enrolments (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  enrolid INTEGER NOT NULL REFERENCES enrol_instances(id) ON DELETE CASCADE,
  userid INTEGER NOT NULL,
  timestart INTEGER NOT NULL DEFAULT 0,
  timeend INTEGER NOT NULL DEFAULT 0,
  timecreated INTEGER NOT NULL DEFAULT 0,
  UNIQUE (enrolid, userid)
);

CREATE TABLE IF NOT EXISTS role_assignments (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  roleid INTEGER NOT NULL,
  userid INTEGER NOT NULL,
  contextid INTEGER NOT NULL,
  component TEXT NOT NULL DEFAULT '',
  timemodified INTEGER NOT NULL DEFAULT 0,
  UNIQUE (roleid, userid, contextid)
);

CREATE TABLE IF NOT EXISTS course_completions (
  userid INTEGER NOT NULL,
  courseid INTEGER NOT NULL,
  timecompleted INTEGER,
  PRIMARY KEY (userid, courseid)
);

CREATE TABLE IF NOT EXISTS module_completions (
  userid INTEGER NOT NULL,
  cmid INTEGER NOT NULL,
  completionstate INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (userid, cmid)
);

CREATE TABLE IF NOT EXISTS grade_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  courseid INTEGER NOT NULL,
  itemtype TEXT NOT NULL,            -- course | mod
  cmid INTEGER,
  grademax REAL NOT NULL DEFAULT 100,
  sortorder INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS grade_grades (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  itemid INTEGER NOT NULL REFERENCES grade_items(id) ON DELETE CASCADE,
  userid INTEGER NOT NULL,
  finalgrade REAL,
  rawgrademax REAL,
  UNIQUE (itemid, userid)
);

CREATE TABLE IF NOT EXISTS lti_tools (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  enrolid INTEGER NOT NULL REFERENCES enrol_instances(id) ON DELETE CASCADE,
  contextid INTEGER NOT NULL,
  customdescription TEXT NOT NULL DEFAULT '',
  maxenrolled INTEGER NOT NULL DEFAULT 0,
  roleinstructor INTEGER NOT NULL,
  rolelearner INTEGER NOT NULL,
  gradesync INTEGER NOT NULL DEFAULT 0,
  gradesynccompletion INTEGER NOT NULL DEFAULT 0,
  institution TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  timezone TEXT NOT NULL DEFAULT '',
  lang TEXT NOT NULL DEFAULT '',
  maildisplay INTEGER,
  timecreated INTEGER NOT NULL,
  timemodified INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS lti_users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  toolid INTEGER NOT NULL REFERENCES lti_tools(id) ON DELETE CASCADE,
  userid INTEGER NOT NULL,
  externalid TEXT,
  lastgrade REAL,
  lastaccess INTEGER NOT NULL DEFAULT 0,
  timecreated INTEGER NOT NULL,
  UNIQUE (toolid, userid)
);

CREATE TABLE IF NOT EXISTS lti_service_keys (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  membershipid INTEGER NOT NULL REFERENCES lti_users(id) ON DELETE CASCADE,
  servicekey TEXT NOT NULL,
  timecreated INTEGER NOT NULL,
  UNIQUE (membershipid, servicekey)
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  auth TEXT NOT NULL DEFAULT 'manual',
  firstname TEXT NOT NULL DEFAULT '',
  lastname TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  institution TEXT NOT NULL DEFAULT '',
  timezone TEXT NOT NULL DEFAULT '',
  maildisplay INTEGER NOT NULL DEFAULT 2,
  mnethostid BIGINT NOT NULL DEFAULT 1,
  confirmed INTEGER NOT NULL DEFAULT 0,
  lang TEXT NOT NULL DEFAULT '',
  deleted INTEGER NOT NULL DEFAULT 0,
  timecreated BIGINT NOT NULL DEFAULT 0,
  timemodified BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS contexts (
  id BIGSERIAL PRIMARY KEY,
  contextlevel INTEGER NOT NULL,
  instanceid BIGINT NOT NULL,
  courseid BIGINT NOT NULL DEFAULT 0,
  depth INTEGER NOT NULL DEFAULT 0,
  modname TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  iconurl TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS enrol_instances (
  id BIGSERIAL PRIMARY KEY,
  enrol TEXT NOT NULL,
  courseid BIGINT NOT NULL,
  status INTEGER NOT NULL DEFAULT 0,
  name TEXT NOT NULL DEFAULT '',
  enrolstartdate BIGINT NOT NULL DEFAULT 0,
  enrolenddate BIGINT NOT NULL DEFAULT 0,
  enrolperiod BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS user_enrolments (
  id BIGSERIAL PRIMARY KEY,
  enrolid BIGINT NOT NULL REFERENCES enrol_instances(id) ON DELETE CASCADE,
  userid BIGINT NOT NULL,
  timestart BIGINT NOT NULL DEFAULT 0,
  timeend BIGINT NOT NULL DEFAULT 0,
  timecreated BIGINT NOT NULL DEFAULT 0,
  UNIQUE (enrolid, userid)
);

CREATE TABLE IF NOT EXISTS role_assignments (
  id BIGSERIAL PRIMARY KEY,
  roleid BIGINT NOT NULL,
  userid BIGINT NOT NULL,
  contextid BIGINT NOT NULL,
  component TEXT NOT NULL DEFAULT '',
  timemodified BIGINT NOT NULL DEFAULT 0,
  UNIQUE (roleid, userid, contextid)
);

CREATE TABLE IF NOT EXISTS course_completions (
  userid BIGINT NOT NULL,
  courseid BIGINT NOT NULL,
  timecompleted BIGINT,
  PRIMARY KEY (userid, courseid)
);

CREATE TABLE IF NOT EXISTS module_completions (
  userid BIGINT NOT NULL,
  cmid BIGINT NOT NULL,
  completionstate INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (userid, cmid)
);

CREATE TABLE IF NOT EXISTS grade_items (
  id BIGSERIAL PRIMARY KEY,
  courseid BIGINT NOT NULL,
  itemtype TEXT NOT NULL,
  cmid BIGINT,
  grademax DOUBLE PRECISION NOT NULL DEFAULT 100,
  sortorder INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS grade_grades (
  id BIGSERIAL PRIMARY KEY,
  itemid BIGINT NOT NULL REFERENCES grade_items(id) ON DELETE CASCADE,
  userid BIGINT NOT NULL,
  finalgrade DOUBLE PRECISION,
  rawgrademax DOUBLE PRECISION,
  UNIQUE (itemid, userid)
);

CREATE TABLE IF NOT EXISTS lti_tools (
  id BIGSERIAL PRIMARY KEY,
  enrolid BIGINT NOT NULL REFERENCES enrol_instances(id) ON DELETE CASCADE,
  contextid BIGINT NOT NULL,
  customdescription TEXT NOT NULL DEFAULT '',
  maxenrolled INTEGER NOT NULL DEFAULT 0,
  roleinstructor BIGINT NOT NULL,
  rolelearner BIGINT NOT NULL,
  gradesync INTEGER NOT NULL DEFAULT 0,
  gradesynccompletion INTEGER NOT NULL DEFAULT 0,
  institution TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  timezone TEXT NOT NULL DEFAULT '',
  lang TEXT NOT NULL DEFAULT '',
  maildisplay INTEGER,
  timecreated BIGINT NOT NULL,
  timemodified BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS lti_users (
  id BIGSERIAL PRIMARY KEY,
  toolid BIGINT NOT NULL REFERENCES lti_tools(id) ON DELETE CASCADE,
  userid BIGINT NOT NULL,
  externalid TEXT,
  lastgrade DOUBLE PRECISION,
  lastaccess BIGINT NOT NULL DEFAULT 0,
  timecreated BIGINT NOT NULL,
  UNIQUE (toolid, userid)
);

CREATE TABLE IF NOT EXISTS lti_service_keys (
  id BIGSERIAL PRIMARY KEY,
  membershipid BIGINT NOT NULL REFERENCES lti_users(id) ON DELETE CASCADE,
  servicekey TEXT NOT NULL,
  timecreated BIGINT NOT NULL,
  UNIQUE (membershipid, servicekey)
);
`
