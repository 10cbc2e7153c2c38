// Copyright (c) 2026 XStream Media. All rights reserved.

/*
Package schema is the single registry of physical table and column names.

Repositories compose their SQL from these definitions instead of hard-coding
identifiers, which keeps renames mechanical and makes the queries grep-able.

Conventions:

  - Tables live in purpose schemas: users, catalog, billing.
  - Column identifiers are lowercase without separators (e.g. "userid").
*/
package schema
